// createpanels builds a panel of controls and a panel of cases from fragment
// end trinucleotide proportions and diversity. The per-feature medians it
// writes serve as preset vectors from which distances are measured when
// scoring new samples.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/freiapanel"
	"github.com/carbocation/freiapanel/compileinfo"
	"github.com/carbocation/freiapanel/panel"
)

// errUsage means the command line was incomplete; usage has been printed.
var errUsage = errors.New("Please provide --output")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else if err != nil {
		log.Fatalln(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var (
		in          panel.Inputs
		labels      = panel.DefaultLabels
		output      string
		showVersion bool
	)

	fs := flag.NewFlagSet("createpanels", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&in.Trinucleotide, "input_trinucleotide", "Dat_GT__sample.csv", "The path to the file containing the fragment end trinucleotide proportions for controls and cancer (WhichSample and WhichGroup columns). May be a gs:// path.")
	fs.StringVar(&in.Diversity, "input_diversity", "Dat_GT__MDS_sample.csv", "The path to the file containing the fragment end diversity for controls and cancer (sample_name and group columns). May be a gs:// path.")
	fs.StringVar(&in.TrinucleotideControls, "input_trinucleotide_controls", "", "The path to the file containing the fragment end trinucleotide proportions for controls. Used when the combined files are not found.")
	fs.StringVar(&in.DiversityControls, "input_diversity_controls", "", "The path to the file containing the fragment end diversity for controls. Used when the combined files are not found.")
	fs.StringVar(&in.TrinucleotideCases, "input_trinucleotide_cases", "", "The path to the file containing the fragment end trinucleotide proportions for cases. Used when the combined files are not found.")
	fs.StringVar(&in.DiversityCases, "input_diversity_cases", "", "The path to the file containing the fragment end diversity for cases. Used when the combined files are not found.")
	fs.StringVar(&output, "output", "", "The path to the output file. May be a gs:// path.")
	fs.StringVar(&output, "o", "", "Shorthand for --output.")
	fs.StringVar(&labels.Control, "control_label", labels.Control, "Value of the group column that marks controls in the combined files.")
	fs.StringVar(&labels.Case, "case_label", labels.Case, "Value of the group column that marks cases in the combined files.")
	fs.BoolVar(&showVersion, "version", false, "Print build information and exit.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVersion {
		compileinfo.Fprint(stdout)
		return nil
	}

	compileinfo.Fprint(stderr)

	if output == "" {
		fs.Usage()
		return errUsage
	}

	ctx := context.Background()

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	var client *storage.Client
	if freiapanel.AnyGoogleStoragePath(output, in.Trinucleotide, in.Diversity, in.TrinucleotideControls,
		in.DiversityControls, in.TrinucleotideCases, in.DiversityCases) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
	}

	if _, err := panel.Create(ctx, in, labels, output, client); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nThe file containing panel of medians is available at:", output)

	return nil
}
