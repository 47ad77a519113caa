package simulate

import (
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"
)

// WriteTable prints a human-readable summary.
func (r Report) WriteTable(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "items=%d rounds=%d noise=%.3f seed=%d\n\n", r.Items, r.Rounds, r.Noise, r.Seed); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tSPEARMAN\tTOP\tMIN\tMAX\tSTDDEV\tUNSEEN\tFALLBACKS")
	for _, res := range r.Results {
		top := "no"
		if res.TopFound {
			top = "yes"
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%d\t%d\t%.2f\t%d\t%d\n",
			res.Strategy, res.Spearman, top,
			res.Coverage.Min, res.Coverage.Max, res.Coverage.StdDev, res.Coverage.Unseen,
			res.Fallbacks)
	}
	return tw.Flush()
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
