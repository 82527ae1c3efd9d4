package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/config"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	scoringservice "github.com/smallbiznis/greenledger/internal/scoring/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// scoresInput is the file read by `calc scores`.
type scoresInput struct {
	Records   []metricdomain.MetricRecord `yaml:"records"`
	Documents []compliancedomain.Document `yaml:"documents"`
}

// emissionsInput is the file read by `calc emissions`.
type emissionsInput struct {
	Region   string                       `yaml:"region"`
	Activity emissionsdomain.ActivityData `yaml:"activity"`
}

type calcFlags struct {
	file       string
	format     string
	rawTargets bool
}

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run the score and emissions calculations on local files",
	}
	cmd.AddCommand(newCalcScoresCmd())
	cmd.AddCommand(newCalcEmissionsCmd())
	return cmd
}

func newCalcScoresCmd() *cobra.Command {
	f := &calcFlags{}

	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Compute ESG scores from metric records and compliance documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in scoresInput
			if err := readYAML(f.file, cmd.InOrStdin(), &in); err != nil {
				return err
			}

			in.Records = scoringservice.ScoringRecords(in.Records)
			if !f.rawTargets {
				holder, err := config.NewScoringConfigHolder(zap.NewNop())
				if err != nil {
					return fmt.Errorf("load scoring config: %w", err)
				}
				scoringservice.ApplyDefaultTargets(in.Records, holder.Get())
			}

			scores := scoringdomain.ComputeScores(in.Records, in.Documents)
			return writeOutput(cmd.OutOrStdout(), f.format, scores)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "YAML file with records and documents (- for stdin)")
	flags.StringVar(&f.format, "format", "json", "Output format: json or yaml")
	flags.BoolVar(&f.rawTargets, "raw-targets", false, "Do not apply configured default targets")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newCalcEmissionsCmd() *cobra.Command {
	f := &calcFlags{}
	var region string

	cmd := &cobra.Command{
		Use:   "emissions",
		Short: "Compute Scope 1/2/3 emissions from activity data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in emissionsInput
			if err := readYAML(f.file, cmd.InOrStdin(), &in); err != nil {
				return err
			}
			if region != "" {
				in.Region = region
			}

			breakdown := emissionsdomain.ComputeEmissions(in.Activity, in.Region)
			return writeOutput(cmd.OutOrStdout(), f.format, breakdown)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "YAML file with region and activity data (- for stdin)")
	flags.StringVar(&f.format, "format", "json", "Output format: json or yaml")
	flags.StringVar(&region, "region", "", "Grid region, overrides the file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readYAML(path string, stdin io.Reader, out any) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
