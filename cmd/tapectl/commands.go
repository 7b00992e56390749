package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/format"
	"github.com/arloliu/mdwire/section"
	"github.com/arloliu/mdwire/tape"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the tape header and dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			h := store.Header()
			loc := store.Location()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tape:      %s\n", store.Path())
			fmt.Fprintf(out, "version:   %d\n", h.Version)
			fmt.Fprintf(out, "created:   %s\n", h.CreatedAt().In(loc).Format(time.RFC3339))
			fmt.Fprintf(out, "updated:   %s\n", h.CurrentTime().In(loc).Format(time.RFC3339))
			fmt.Fprintf(out, "records:   %d of %d\n", h.NumRec, h.MaxRec)
			fmt.Fprintf(out, "messages:  %d\n", h.NumMsg)
			fmt.Fprintf(out, "data:      [%d, %d)\n", h.DataOffset, h.DataEnd)
			fmt.Fprintf(out, "index:     %d slots of %ds\n", h.NumSecIdx, h.SecPerIdx)

			dict := store.Dictionary()
			fmt.Fprintf(out, "fields:    %d\n", len(dict))
			for _, e := range dict {
				fmt.Fprintf(out, "  %-20s %6d %s\n", e.Name, e.FID, e.Type)
			}

			return nil
		},
	}
}

func newTickersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tickers",
		Short: "List the tickers recorded on the tape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := a.newReplayer(store, tape.SinkFuncs{}, false)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IDX\tSERVICE\tTICKER\tMSGS\tLAST")
			for _, ti := range r.Query() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", ti.DBIdx, ti.Service, ti.Ticker, ti.NumMsg,
					ti.LastTime.In(store.Location()).Format("15:04:05.000"))
			}

			return tw.Flush()
		},
	}
}

type dumpOpts struct {
	service string
	tickers []string
	start   string
	end     string
	reverse bool
	limit   int
	timeout time.Duration
}

func newDumpCmd(a *app) *cobra.Command {
	o := &dumpOpts{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Replay records, optionally filtered by ticker and time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReplay(cmd, o, "")
		},
	}

	addReplayFlags(cmd, o)

	return cmd
}

func addReplayFlags(cmd *cobra.Command, o *dumpOpts) {
	f := cmd.Flags()
	f.StringVar(&o.service, "svc", "IDN", "service of --tkr tickers")
	f.StringSliceVar(&o.tickers, "tkr", nil, "tickers to replay (default all)")
	f.StringVar(&o.start, "start", "", "window start, YYYYMMDD HH:MM:SS[.mmm] or HH:MM:SS[.mmm]")
	f.StringVar(&o.end, "end", "", "window end")
	f.BoolVar(&o.reverse, "reverse", false, "replay ticker chains newest first")
	f.IntVar(&o.limit, "limit", 0, "stop after this many records")
	f.DurationVar(&o.timeout, "timeout", 0, "abort the replay after this long")
}

func newSampleCmd(a *app) *cobra.Command {
	o := &dumpOpts{}
	var (
		interval time.Duration
		fields   []string
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Replay per-interval snapshots of selected fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				d, err := a.cfg.SampleInterval()
				if err != nil {
					return err
				}
				interval = d
			}
			if !cmd.Flags().Changed("fields") && len(a.cfg.Sample.Fields) > 0 {
				fields = a.cfg.Sample.Fields
			}
			if interval <= 0 {
				return fmt.Errorf("sample needs a positive --interval")
			}

			secs := fmt.Sprintf("%g", interval.Seconds())

			return a.runReplay(cmd, o, secs+"|"+strings.Join(fields, ","))
		},
	}

	addReplayFlags(cmd, o)
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "sample bucket width")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "field names or ids to sample (default all)")

	return cmd
}

// runReplay pumps the tape through a printer. sampling is the
// "interval|fields" tail of a slice spec, empty for plain dumps.
func (a *app) runReplay(cmd *cobra.Command, o *dumpOpts, sampling string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p := newPrinter(cmd.OutOrStdout(), store, a.logger)
	r, err := a.newReplayer(store, p, o.reverse)
	if err != nil {
		return err
	}
	p.limit, p.stop = o.limit, r.Stop

	for _, tkr := range o.tickers {
		r.Subscribe(o.service, tkr)
	}

	spec := o.start + "|" + o.end
	if sampling != "" {
		spec += "|" + sampling
	}
	if spec != "|" {
		sl, err := tape.ParseSlice(spec, store)
		if err != nil {
			return err
		}
		if err := r.SetSlice(sl); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	_, err = r.Pump(ctx)

	return err
}

func newPageCmd(a *app) *cobra.Command {
	var (
		offset uint64
		count  int
	)
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Replay a page of frames from an absolute offset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			p := newPrinter(cmd.OutOrStdout(), store, a.logger)
			r, err := a.newReplayer(store, p, false)
			if err != nil {
				return err
			}
			if _, err := r.StartPumpFullTape(offset, count); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if _, err := r.Pump(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "next offset: %d\n", p.next)

			return nil
		},
	}

	cmd.Flags().Uint64Var(&offset, "offset", 0, "frame offset to start at (0 = first frame)")
	cmd.Flags().IntVar(&count, "count", 100, "frames per page (0 = rest of tape)")

	return cmd
}

// Dictionary of generated tapes.
var genFields = []section.DictEntry{
	{Name: "DSPLY_NAME", FID: 3, Type: format.FieldString},
	{Name: "TRDPRC_1", FID: 6, Type: format.FieldDouble},
	{Name: "BID", FID: 22, Type: format.FieldDouble},
	{Name: "ASK", FID: 25, Type: format.FieldDouble},
	{Name: "ACVOL_1", FID: 32, Type: format.FieldInt64},
	{Name: "TRDTIM_1", FID: 18, Type: format.FieldTime},
}

func newGenCmd(a *app) *cobra.Command {
	var (
		out     string
		tickers int
		msgs    int
		seed    uint64
		start   string
		step    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic tape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.Tape
			}
			if out == "" {
				return fmt.Errorf("gen needs --out or --tape")
			}
			loc, err := a.cfg.TimeLocation()
			if err != nil {
				return err
			}

			begin := time.Now().In(loc).Truncate(time.Second)
			if start != "" {
				if begin, err = time.ParseInLocation("20060102 15:04:05", start, loc); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}

			n, err := generate(genConfig{
				path:    out,
				tickers: tickers,
				msgs:    msgs,
				seed:    seed,
				begin:   begin,
				step:    step,
				writer: tape.WriterConfig{
					MaxRecords:  max(a.cfg.Writer.MaxRecords, uint32(tickers)), //nolint:gosec
					SecPerIndex: a.cfg.Writer.SecPerIndex,
					Location:    loc,
					CreateTime:  begin,
					Logger:      a.logger,
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d messages for %d tickers to %s\n", n, tickers, out)

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output tape (default --tape)")
	f.IntVar(&tickers, "tickers", 5, "number of tickers")
	f.IntVar(&msgs, "msgs", 1000, "messages to write")
	f.Uint64Var(&seed, "seed", 1, "random seed")
	f.StringVar(&start, "start", "", "time of the first message, YYYYMMDD HH:MM:SS (default now)")
	f.DurationVar(&step, "step", 250*time.Millisecond, "time between messages")

	return cmd
}

type genConfig struct {
	path    string
	tickers int
	msgs    int
	seed    uint64
	begin   time.Time
	step    time.Duration
	writer  tape.WriterConfig
}

// generate writes a random walk of quotes and trades. The first message of
// each ticker is an image carrying every field.
func generate(cfg genConfig) (int, error) {
	if cfg.tickers <= 0 || cfg.msgs < 0 {
		return 0, fmt.Errorf("need at least one ticker and a non-negative message count")
	}

	w, err := tape.Create(cfg.path, cfg.writer)
	if err != nil {
		return 0, err
	}
	for _, e := range genFields {
		if err := w.AddField(e.Name, e.FID, e.Type); err != nil {
			_ = w.Close()
			return 0, err
		}
	}

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)) //nolint:gosec
	prices := make([]float64, cfg.tickers)
	volumes := make([]int64, cfg.tickers)
	seen := make([]bool, cfg.tickers)
	for i := range prices {
		prices[i] = 50 + float64(rng.IntN(200))
	}

	ts := cfg.begin
	for i := range cfg.msgs {
		k := rng.IntN(cfg.tickers)
		ticker := fmt.Sprintf("SYM%03d.O", k)
		prices[k] += float64(rng.IntN(21)-10) / 100
		volumes[k] += int64(rng.IntN(500))

		hdr := section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgUpdate, RTL: uint32(i + 1)} //nolint:gosec
		fields := []encoding.Field{
			encoding.NewField(22, encoding.Double(prices[k]-0.01)),
			encoding.NewField(25, encoding.Double(prices[k]+0.01)),
		}
		if !seen[k] || rng.IntN(4) == 0 {
			fields = append(fields,
				encoding.NewField(6, encoding.Double(prices[k])),
				encoding.NewField(32, encoding.Int64(volumes[k])),
				encoding.NewField(18, encoding.Time(timeOfDay(ts))),
			)
		}
		if !seen[k] {
			hdr.MsgType = format.MsgImage
			fields = append(fields, encoding.NewField(3, encoding.String(ticker)))
			seen[k] = true
		}

		if _, err := w.AppendMessage("IDN", ticker, ts, hdr, fields); err != nil {
			_ = w.Close()
			return i, err
		}
		ts = ts.Add(cfg.step)
	}

	return cfg.msgs, w.Close()
}

// timeOfDay renders t as HHMMSS.mmm.
func timeOfDay(t time.Time) float64 {
	return float64(t.Hour()*10000+t.Minute()*100+t.Second()) + float64(t.Nanosecond()/1e6)/1000
}
