package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/lake/fake"
	"github.com/spf13/cobra"
)

// GenMain is wrapped by NewGenCommand and only exported for testing purposes.
var GenMain *fake.Main

// NewGenCommand returns a new cobra command wrapping GenMain.
func NewGenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	GenMain = fake.NewMain()
	genCommand := &cobra.Command{
		Use:   "gen",
		Short: "gen - write a synthetic catalog and event log to a local directory",
		Long: `Writes song_data and log_data under --dir in the layout etl reads, so
that "lake etl --input <dir>" can be run without access to S3.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return GenMain.Run()
		},
	}
	flags := genCommand.Flags()
	err = commandeer.Flags(flags, GenMain)
	if err != nil {
		panic(err)
	}
	return genCommand
}

func init() {
	subcommandFns["gen"] = NewGenCommand
}
