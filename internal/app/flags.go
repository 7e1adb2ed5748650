package app

import "flag"

// Flags are the flags every pipeline command accepts.
type Flags struct {
	BaseDir string
	Version bool
}

// RegisterFlags adds -base and -version to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.BaseDir, "base", "", "base directory (defaults to MAKER_BASE_DIR, then the working directory)")
	fs.BoolVar(&f.Version, "version", false, "print version information and exit")
	return f
}

// Options returns the run options for command.
func (f *Flags) Options(command string) Options {
	return Options{Command: command, BaseDir: f.BaseDir, ShowVersion: f.Version}
}
