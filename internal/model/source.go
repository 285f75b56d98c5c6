// Package model defines the data structures shared by the devtask runner.
package model

// Path represents a file system path.
type Path string

// SourceFile represents a source file selected for processing.
type SourceFile struct {
	// Path is the path as found on disk, relative to the working directory
	// when the target was relative.
	Path Path
	// ShortPath is Path made relative to the working directory for display.
	ShortPath Path
	// Hash is the SHA-256 of the file contents at collection time.
	Hash string
}

// SourceStat summarizes a source file for the list command.
type SourceStat struct {
	File               SourceFile
	Lines              int
	TrailingWhitespace int
	SuspectComments    int
}
