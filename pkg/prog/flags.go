package prog

import "flag"

// FlagSet wraps a [flag.FlagSet], and offers flags shared by several
// subprograms. A shared flag is registered the first time it is asked for.
type FlagSet struct {
	*flag.FlagSet
	commands string
	json     *bool
	format   *string
	db       *string
}

// JSON returns the value of the -json flag.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"show the output from -buildinfo or -version in JSON")
		fs.json = &json
	}
	return fs.json
}

// Format returns the value of the -format flag, which selects how data is
// written out.
func (fs *FlagSet) Format() *string {
	if fs.format == nil {
		var format string
		fs.StringVar(&format, "format", "json", "output format, json or yaml")
		fs.format = &format
	}
	return fs.format
}

// DB returns the value of the -db flag, the path to the store database.
func (fs *FlagSet) DB() *string {
	if fs.db == nil {
		var db string
		fs.StringVar(&db, "db", "", "path to the store database; defaults to the one in fastn.yaml")
		fs.db = &db
	}
	return fs.db
}
