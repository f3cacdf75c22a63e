package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/memtracker/datarecording"
	"github.com/sarchlab/memtracker/ledger"
	"github.com/sarchlab/memtracker/monitoring"
	"github.com/sarchlab/memtracker/narration"
	"github.com/sarchlab/memtracker/tracing"
	"github.com/sarchlab/memtracker/visual"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Narrate scenarios and print the state after each step.",
		Long: "`run` plays the named scenarios in order, or every built-in " +
			"scenario when none is named. The tracker is reset between " +
			"scenarios.",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunFlags(cmd, &root.cfg)
			return runScenarios(cmd.OutOrStdout(), root.cfg,
				narration.DefaultRegistry(), args)
		},
	}

	runCmd.Flags().Int("bar-width", 0, "Widest allocation bar.")
	runCmd.Flags().Int("recent", 0, "Number of recent operations shown per step.")
	runCmd.Flags().String("record", "",
		"Record the operations into <path>.sqlite3.")
	runCmd.Flags().String("json", "",
		"Write the operations as a JSON array into the given file.")
	runCmd.Flags().Bool("log-trace", false,
		"Log every operation to stderr.")
	runCmd.Flags().Bool("monitor", false,
		"Serve the tracker over HTTP and keep serving after the run.")
	runCmd.Flags().Int("port", 0, "Port of the monitoring server.")
	runCmd.Flags().Bool("open", false, "Open the monitoring page in a browser.")

	return runCmd
}

// applyRunFlags overrides cfg with the flags the user actually set.
func applyRunFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()

	if flags.Changed("bar-width") {
		cfg.BarWidth, _ = flags.GetInt("bar-width")
	}

	if flags.Changed("recent") {
		cfg.Recent, _ = flags.GetInt("recent")
	}

	if flags.Changed("record") {
		cfg.TraceDB, _ = flags.GetString("record")
	}

	if flags.Changed("json") {
		cfg.JSONTrace, _ = flags.GetString("json")
	}

	if flags.Changed("log-trace") {
		cfg.LogTrace, _ = flags.GetBool("log-trace")
	}

	if flags.Changed("monitor") {
		cfg.Monitor, _ = flags.GetBool("monitor")
	}

	if flags.Changed("port") {
		cfg.MonitorPort, _ = flags.GetInt("port")
	}

	if flags.Changed("open") {
		cfg.OpenBrowser, _ = flags.GetBool("open")
	}
}

type stepPrinter struct {
	out      io.Writer
	renderer visual.Renderer
	recent   int
	caption  *color.Color
	header   *color.Color
}

func newStepPrinter(out io.Writer, renderer visual.Renderer, recent int) *stepPrinter {
	return &stepPrinter{
		out:      out,
		renderer: renderer,
		recent:   recent,
		caption:  color.New(color.FgCyan, color.Bold),
		header:   color.New(color.FgYellow),
	}
}

func (p *stepPrinter) Step(caption string, t *ledger.Tracker) {
	p.caption.Fprintf(p.out, "-- %s\n", caption)
	fmt.Fprint(p.out, p.renderer.RenderState(t))

	if p.recent > 0 {
		p.header.Fprintln(p.out, "recent:")
		fmt.Fprint(p.out, p.renderer.RenderRecent(t.Recent(p.recent)))
	}

	fmt.Fprintln(p.out)
}

func (p *stepPrinter) scenario(name string) {
	p.header.Fprintf(p.out, "=== %s ===\n", name)
}

func (p *stepPrinter) summary(s ledger.Summary) {
	p.header.Fprintln(p.out, "summary:")
	fmt.Fprint(p.out, p.renderer.RenderSummary(s))
	fmt.Fprintln(p.out)
}

type runSession struct {
	tracker    *ledger.Tracker
	recorder   datarecording.DataRecorder
	exec       *datarecording.ExecRecorder
	dbTracer   *tracing.DBTracer
	jsonFile   *os.File
	jsonTracer *tracing.JSONTracer
	monitor    *monitoring.Monitor
}

func newRunSession(cfg Config, renderer visual.Renderer) (*runSession, error) {
	s := &runSession{tracker: ledger.NewTracker()}

	if cfg.LogTrace {
		tracing.CollectTrace(s.tracker,
			tracing.NewLogTracer(log.New(os.Stderr, "", 0)))
	}

	if cfg.TraceDB != "" {
		s.recorder = datarecording.New(cfg.TraceDB)
		s.exec = datarecording.NewExecRecorder(s.recorder)
		s.exec.Start()
		s.dbTracer = tracing.NewDBTracer(s.recorder)
		tracing.CollectTrace(s.tracker, s.dbTracer)
	}

	if cfg.JSONTrace != "" {
		f, err := os.Create(cfg.JSONTrace)
		if err != nil {
			_ = s.finish()
			return nil, err
		}

		s.jsonFile = f
		s.jsonTracer = tracing.NewJSONTracer(f)
		tracing.CollectTrace(s.tracker, s.jsonTracer)
	}

	if cfg.Monitor {
		counter := tracing.NewKindCountTracer()
		tracing.CollectTrace(s.tracker, counter)

		s.monitor = monitoring.NewMonitor(s.tracker).
			WithPortNumber(cfg.MonitorPort).
			WithRenderer(renderer)
		s.monitor.RegisterKindCounter(counter)

		url, err := s.monitor.StartServer()
		if err != nil {
			_ = s.finish()
			return nil, err
		}

		if cfg.OpenBrowser {
			err = browser.OpenURL(url + "/api/state")
			if err != nil {
				log.Printf("cannot open browser: %v", err)
			}
		}
	}

	return s, nil
}

// do serializes tracker access with the monitoring server, if any.
func (s *runSession) do(fn func(t *ledger.Tracker)) {
	if s.monitor == nil {
		fn(s.tracker)
		return
	}

	s.monitor.Do(fn)
}

// finish closes every trace the session opened, joining their errors.
func (s *runSession) finish() error {
	var errs []error

	if s.jsonTracer != nil {
		s.jsonTracer.Finish()
		errs = append(errs, s.jsonFile.Close())
	}

	if s.recorder != nil {
		s.do(func(t *ledger.Tracker) { s.dbTracer.Finish(t.Summary()) })
		s.exec.End()
		errs = append(errs, s.recorder.Close())
	}

	return errors.Join(errs...)
}

func runScenarios(
	out io.Writer,
	cfg Config,
	registry *narration.Registry,
	names []string,
) error {
	if len(names) == 0 {
		names = registry.Names()
	}

	for _, name := range names {
		if _, found := registry.Get(name); !found {
			return fmt.Errorf("unknown scenario %q, try `memtracker list`", name)
		}
	}

	renderer := visual.NewRenderer().WithMaxBarWidth(cfg.BarWidth)
	printer := newStepPrinter(out, renderer, cfg.Recent)

	session, err := newRunSession(cfg, renderer)
	if err != nil {
		return err
	}

	err = narrate(session, registry, names, printer)

	finishErr := session.finish()

	if err == nil {
		err = finishErr
	}

	if session.monitor == nil {
		return err
	}

	if err == nil {
		waitForInterrupt()
	}

	stopMonitor(session.monitor)

	return err
}

func narrate(
	session *runSession,
	registry *narration.Registry,
	names []string,
	printer *stepPrinter,
) error {
	var bar *monitoring.ProgressBar
	if session.monitor != nil {
		bar = session.monitor.CreateProgressBar("scenarios", uint64(len(names)))
	}

	for _, name := range names {
		printer.scenario(name)

		if bar != nil {
			bar.IncrementInProgress(1)
		}

		var err error

		session.do(func(t *ledger.Tracker) {
			err = registry.Run(t, []string{name}, printer)
			if err == nil {
				printer.summary(t.Summary())
			}
		})
		if err != nil {
			return err
		}

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}
	}

	return nil
}

func waitForInterrupt() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintln(os.Stderr, "Narration finished. Press Ctrl-C to stop monitoring.")
	<-ctx.Done()
}

func stopMonitor(m *monitoring.Monitor) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.StopServer(ctx)
	if err != nil {
		log.Printf("stopping monitoring server: %v", err)
	}
}
