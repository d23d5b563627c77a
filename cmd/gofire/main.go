package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cellular-genomics/gofire"
)

const gofire_version = "1.0.0"

type Metrics struct {
	Version     string `json:"gofire_version"`
	Date        string `json:"date"`
	Elapsed     string `json:"elapsed"`
	Command     string `json:"command"`
	Experiments int    `json:"experiments"`
	Bins        int    `json:"bins"`
	Scored      []int  `json:"scored_bins"`
}

func (m *Metrics) Log(op string) {
	resp, err := json.MarshalIndent(m, "", "\t")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	f, err := os.Create(op + "_gofire.json")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()

	f.WriteString(string(resp))
	f.WriteString("\n")
}

func main() {

	// start time is what elapsed metric
	// is calculated from
	startTime := time.Now()

	parser := argparse.NewParser("gofire", `gofire detects frequently interacting regions (FIREs) from Hi-C contact data. For each genomic bin it counts contacts to the local cis-neighborhood, corrects the counts for mappability, GC content and fragment density with a count regression, and reports an observed/expected fire score plus an upper-tail log p-value per experiment.`)
	mappability := parser.String("m", "mappability", &argparse.Options{Help: "Mappability file with columns chr start end F GC M"})
	contacts := parser.StringList("c", "contacts", &argparse.Options{Help: "Sparse contact matrix dump (chrom1 start1 end1 chrom2 start2 end2 count); repeat per experiment"})
	output := parser.String("o", "output", &argparse.Options{Help: "Output table file", Default: "fires.txt"})
	binSize := parser.Int("b", "bin-size", &argparse.Options{Help: "Bin size in base pairs matching the input resolution"})
	region := parser.Int("n", "neighborhood-region", &argparse.Options{Help: "Size of the cis-neighborhood region in base pairs", Default: 200000})
	percThreshold := parser.Float("p", "perc-threshold", &argparse.Options{Help: "Maximum fraction of bad neighbor bins allowed", Default: 0.25})
	avgMappability := parser.Float("a", "avg-mappability-threshold", &argparse.Options{Help: "Minimum average neighborhood mappability allowed", Default: 0.9})
	threads := parser.Int("t", "threads", &argparse.Options{Help: "Number of worker threads; 0 uses all CPUs", Default: 0})
	quantile := parser.Flag("q", "quantile-normalize", &argparse.Options{Help: "Quantile-normalize fire scores across experiments"})
	scorePlot := parser.String("", "score-plot", &argparse.Options{Help: "Write a fire-score histogram to this file (.png or .pdf)"})
	version := parser.Flag("v", "version", &argparse.Options{Help: "Print the current gofire version"})
	verbose := parser.Flag("", "verbose", &argparse.Options{Help: "Run gofire in verbose mode"})
	// note: "Required" interface clashes with --version flag.
	err := parser.Parse(os.Args)

	// parse flags --------------------------------------------------------------------------------

	if *version == true {
		fmt.Println("gofire version:", gofire_version)
		os.Exit(0)
	}

	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *mappability == "" || len(*contacts) == 0 || *binSize == 0 {
		fmt.Println(parser.Help(nil))
		os.Exit(1)
	}

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// import data --------------------------------------------------------------------------------

	cfg := gofire.DefaultConfig(*binSize, *region)
	cfg.PercThreshold = *percThreshold
	cfg.AvgMappabilityThreshold = *avgMappability
	cfg.QuantileNormalize = *quantile
	cfg.Threads = *threads

	logrus.Debugf("Reading mappability file %s...", *mappability)
	tab, err := gofire.ImportCovariates(*mappability, cfg.BinSize)
	if err != nil {
		logrus.Errorf("Error %s", err.Error())
		os.Exit(1)
	}

	exps := make([]*gofire.Experiment, 0, len(*contacts))
	for _, filename := range *contacts {
		logrus.Debugf("Reading contact matrix %s...", filename)
		exp, err := gofire.ImportContactMatrix(filename, cfg.BinSize)
		if err != nil {
			logrus.Errorf("Error %s", err.Error())
			os.Exit(1)
		}
		exps = append(exps, exp)
	}

	// score --------------------------------------------------------------------------------------

	result, err := gofire.Run(tab, exps, cfg)
	if err != nil {
		logrus.Errorf("Error %s", err.Error())
		os.Exit(1)
	}

	if err := result.ExportTable(*output); err != nil {
		logrus.Errorln(err)
		os.Exit(1)
	}
	logrus.Debugf("Result saved to %s", *output)

	if *scorePlot != "" {
		if err := saveScorePlot(result, *scorePlot); err != nil {
			logrus.Errorln(err)
		}
	}

	// write output metrics -----------------------------------------------------------------------

	scored := make([]int, result.NumExperiments())
	for n := range scored {
		for _, v := range result.FireScores(n) {
			if !math.IsNaN(v) {
				scored[n]++
			}
		}
	}

	metrics := &Metrics{
		Version:     gofire_version,
		Date:        time.Now().Format("2006-01-02 3:4:5 PM"),
		Elapsed:     time.Since(startTime).String(),
		Command:     strings.Join(os.Args, " "),
		Experiments: result.NumExperiments(),
		Bins:        result.Length(),
		Scored:      scored,
	}

	// log metrics to file
	metrics.Log(strings.TrimSuffix(*output, ".txt"))
}

// saveScorePlot writes a histogram of all finite fire scores across
// experiments.
func saveScorePlot(result *gofire.Result, filename string) error {
	var values plotter.Values
	for n := 0; n < result.NumExperiments(); n++ {
		for _, v := range result.FireScores(n) {
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("no scored bins to plot")
	}

	p := plot.New()
	p.Title.Text = ""
	p.X.Label.Text = "fire score"
	p.Y.Label.Text = "bins"

	h, err := plotter.NewHist(values, 50)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(8*vg.Inch, 4*vg.Inch, filename)
}
