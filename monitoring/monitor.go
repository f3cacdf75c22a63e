// Package monitoring serves the read surface of a ledger over HTTP so that a
// running narration can be watched from a browser or with curl.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/memtracker/ledger"
	"github.com/sarchlab/memtracker/tracing"
	"github.com/sarchlab/memtracker/visual"
)

// Monitor turns a tracker into a server. A Tracker is not safe for concurrent
// use, so every access made by the monitor, and every access the host makes
// while the monitor is serving, goes through Do.
type Monitor struct {
	lock     sync.Mutex
	tracker  *ledger.Tracker
	renderer visual.Renderer
	counter  *tracing.KindCountTracer

	portNumber      int
	profileDuration time.Duration
	server          *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor over a tracker.
func NewMonitor(tracker *ledger.Tracker) *Monitor {
	return &Monitor{
		tracker:         tracker,
		renderer:        visual.NewRenderer(),
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithRenderer sets the renderer used by the state endpoint.
func (m *Monitor) WithRenderer(r visual.Renderer) *Monitor {
	m.renderer = r
	return m
}

// RegisterKindCounter exposes a KindCountTracer on the kinds endpoint.
func (m *Monitor) RegisterKindCounter(c *tracing.KindCountTracer) {
	m.counter = c
}

// Do runs fn while holding the tracker lock.
func (m *Monitor) Do(fn func(t *ledger.Tracker)) {
	m.lock.Lock()
	defer m.lock.Unlock()

	fn(m.tracker)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler serving the monitoring API.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/summary", m.summary).Methods(http.MethodGet)
	r.HandleFunc("/api/recent/{n}", m.recent).Methods(http.MethodGet)
	r.HandleFunc("/api/allocations", m.allocations).Methods(http.MethodGet)
	r.HandleFunc("/api/borrows", m.borrows).Methods(http.MethodGet)
	r.HandleFunc("/api/state", m.state).Methods(http.MethodGet)
	r.HandleFunc("/api/tracker", m.dumpTracker).Methods(http.MethodGet)
	r.HandleFunc("/api/kinds", m.kinds).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts serving in the background and returns the URL the
// monitor listens on.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring tracker with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitoring server stopped: %v", err)
		}
	}()

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	var s ledger.Summary
	m.Do(func(t *ledger.Tracker) { s = t.Summary() })

	writeJSON(w, s)
}

func (m *Monitor) recent(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	var records []ledger.OperationRecord
	m.Do(func(t *ledger.Tracker) { records = t.Recent(n) })

	writeJSON(w, records)
}

func (m *Monitor) allocations(w http.ResponseWriter, _ *http.Request) {
	var entries []ledger.AllocationEntry
	m.Do(func(t *ledger.Tracker) { entries = t.Allocations() })

	writeJSON(w, entries)
}

func (m *Monitor) borrows(w http.ResponseWriter, _ *http.Request) {
	var entries []ledger.BorrowEntry
	m.Do(func(t *ledger.Tracker) { entries = t.Borrows() })

	writeJSON(w, entries)
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	var text string
	m.Do(func(t *ledger.Tracker) { text = m.renderer.RenderState(t) })

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte(text))
	dieOnErr(err)
}

func (m *Monitor) dumpTracker(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	m.Do(func(t *ledger.Tracker) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(t)
		serializer.SetMaxDepth(1)
		err := serializer.Serialize(buf)
		dieOnErr(err)
	})

	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

type kindCountRsp struct {
	Kind    ledger.Kind `json:"kind"`
	Count   uint64      `json:"count"`
	NoOps   uint64      `json:"no_ops"`
	ByteSum uint64      `json:"byte_sum"`
}

func (m *Monitor) kinds(w http.ResponseWriter, _ *http.Request) {
	if m.counter == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Kind counter not registered"))
		dieOnErr(err)

		return
	}

	rsp := make([]kindCountRsp, 0)
	for _, k := range ledger.Kinds() {
		rsp = append(rsp, kindCountRsp{
			Kind:    k,
			Count:   m.counter.Count(k),
			NoOps:   m.counter.NoOpCount(k),
			ByteSum: m.counter.Bytes(k),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
