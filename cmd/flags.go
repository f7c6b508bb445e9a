package cmd

import (
	"github.com/spf13/pflag"
)

// addOutputFlags registers the shared output-format flag on a command's
// flag set.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.StringP("output", "o", "text", "Output format (text, json)")
}
