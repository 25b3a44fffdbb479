package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ssrworker/internal/columnar"
	"github.com/aatumaykin/ssrworker/internal/protocol"
	"github.com/aatumaykin/ssrworker/internal/views"
)

var (
	sampleGenomes int
	sampleSSRs    int
	sampleSeed    uint64
)

// sampleCmd writes a synthetic SSR result table
var sampleCmd = &cobra.Command{
	Use:   "sample <out.arrow>",
	Short: "Write a synthetic SSR result table as an Arrow IPC stream",
	Long: `Generate a deterministic SSR table with every column the views read.
Useful for trying the other commands and the HTTP API without the analysis service.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleGenomes < 1 || sampleSSRs < 1 {
			return fmt.Errorf("--genomes and --ssrs must be >= 1")
		}

		records := sampleRecords(sampleGenomes, sampleSSRs, sampleSeed)
		buf, err := columnar.Encode(records, sampleColumns)
		if err != nil {
			return fmt.Errorf("failed to encode sample: %w", err)
		}

		if err := os.WriteFile(args[0], buf, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records (%d bytes) to %s\n", len(records), len(buf), args[0])
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVar(&sampleGenomes, "genomes", 12, "number of genomes")
	sampleCmd.Flags().IntVar(&sampleSSRs, "ssrs", 20, "SSRs per genome")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 1, "random seed")
}

var sampleColumns = []columnar.Column{
	{Name: views.ColGenome, Type: columnar.String},
	{Name: views.ColCategory, Type: columnar.String},
	{Name: views.ColCountry, Type: columnar.String},
	{Name: views.ColYear, Type: columnar.Int64},
	{Name: views.ColMotif, Type: columnar.String},
	{Name: views.ColRepeat, Type: columnar.Int32},
	{Name: views.ColGC, Type: columnar.Float64},
	{Name: views.ColGene, Type: columnar.String},
	{Name: views.ColLength, Type: columnar.Int64},
	{Name: "ssr_position", Type: columnar.Int64},
	{Name: "complete", Type: columnar.Bool},
}

var (
	sampleCategories = []string{"Clade I", "Clade Ia", "Clade Ib", "Clade II", "Clade IIb"}
	sampleCountries  = []string{"Nigeria", "Democratic Republic of the Congo", "United Kingdom", "United States", "India", "Brazil"}
	sampleGenes      = []string{"OPG001", "OPG019", "OPG034", "OPG057", "OPG105", "OPG153", "OPG190", "OPG210"}
	sampleMotifs     = []string{"A", "T", "AT", "TA", "CAG", "GGC", "AATG", "TTTTA", "ACGTGC"}
)

// sampleRecords builds genomes*ssrs rows. The same seed gives the same table.
func sampleRecords(genomes, ssrs int, seed uint64) []protocol.Record {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	records := make([]protocol.Record, 0, genomes*ssrs)

	for g := range genomes {
		genome := fmt.Sprintf("GCA_%09d.1", 100000+g)
		category := sampleCategories[rng.IntN(len(sampleCategories))]
		country := sampleCountries[rng.IntN(len(sampleCountries))]
		year := int64(2017 + rng.IntN(8))
		gc := 32.0 + rng.Float64()*4

		position := int64(0)
		for range ssrs {
			motif := sampleMotifs[rng.IntN(len(sampleMotifs))]
			repeat := 3 + rng.IntN(12)
			position += int64(50 + rng.IntN(900))

			rec := protocol.Record{
				views.ColGenome:   genome,
				views.ColCategory: category,
				views.ColCountry:  country,
				views.ColYear:     year,
				views.ColMotif:    motif,
				views.ColRepeat:   repeat,
				views.ColGC:       gc,
				views.ColGene:     sampleGenes[rng.IntN(len(sampleGenes))],
				views.ColLength:   int64(len(motif) * repeat),
				"ssr_position":    position,
				"complete":        !strings.HasPrefix(category, "Clade II"),
			}
			// some SSRs fall between genes
			if rng.IntN(10) == 0 {
				rec[views.ColGene] = nil
			}
			records = append(records, rec)
		}
	}
	return records
}
