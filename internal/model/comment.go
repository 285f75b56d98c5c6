package model

// CommentMatch is a line that looks like commented-out code.
type CommentMatch struct {
	Path Path
	Line int
	Text string
}

// CommentReport is the outcome of a comment scan.
type CommentReport struct {
	Matches      []CommentMatch
	Truncated    bool
	FilesScanned int
	// Warnings lists targets or settings the scan had to skip.
	Warnings []string
}
