// Booking race harness: points N concurrent workers at one free window on
// one doctor and checks that exactly one booking wins while the rest get a
// conflict. Run it against a live api-server, ideally several instances
// behind one Redis.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clinicdesk/appointment-engine/internal/logger"
)

type simConfig struct {
	baseURL   string
	workers   int
	rounds    int
	doctorID  int64
	patientID int64
	date      string
}

type raceMetrics struct {
	total     int64
	success   int64
	conflict  int64
	errored   int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *raceMetrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflict, 1)
	default:
		atomic.AddInt64(&m.errored, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *raceMetrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	cfg := simConfig{}
	flag.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "api-server base URL")
	flag.IntVar(&cfg.workers, "workers", 20, "concurrent booking attempts per round")
	flag.IntVar(&cfg.rounds, "rounds", 10, "number of contested windows to race")
	flag.Int64Var(&cfg.doctorID, "doctor", 1, "doctor id to contend on")
	flag.Int64Var(&cfg.patientID, "patient", 1, "patient id to book for")
	flag.StringVar(&cfg.date, "date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "calendar day to book on")
	flag.Parse()

	log := logger.New("info", "console")
	log.Info().
		Str("url", cfg.baseURL).
		Int("workers", cfg.workers).
		Int("rounds", cfg.rounds).
		Msg("simulate starting")

	client := &http.Client{Timeout: 10 * time.Second}
	metrics := &raceMetrics{}
	badRounds := 0

	for round := 0; round < cfg.rounds; round++ {
		// One distinct window per round so every round starts free.
		hour := 9 + round%8
		start := fmt.Sprintf("%sT%02d:00", cfg.date, hour)

		winners := raceWindow(client, cfg, start, metrics)
		if winners != 1 {
			badRounds++
			log.Error().Str("start", start).Int64("winners", winners).Msg("window had wrong number of winners")
		} else {
			log.Info().Str("start", start).Msg("exactly one winner")
		}
	}

	log.Info().
		Int64("total", atomic.LoadInt64(&metrics.total)).
		Int64("success", atomic.LoadInt64(&metrics.success)).
		Int64("conflict", atomic.LoadInt64(&metrics.conflict)).
		Int64("error", atomic.LoadInt64(&metrics.errored)).
		Dur("p50", metrics.percentile(50)).
		Dur("p95", metrics.percentile(95)).
		Msg("simulate finished")

	if badRounds > 0 {
		log.Error().Int("bad_rounds", badRounds).Msg("double booking or lost booking detected")
		os.Exit(1)
	}
}

func raceWindow(client *http.Client, cfg simConfig, start string, metrics *raceMetrics) int64 {
	var winners int64
	var wg sync.WaitGroup

	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			body, _ := json.Marshal(map[string]any{
				"doctor_id":        cfg.doctorID,
				"patient_id":       cfg.patientID,
				"start":            start,
				"duration_minutes": 30,
				"reason":           "race harness",
				"created_by":       fmt.Sprintf("simulate-%d", worker),
			})

			began := time.Now()
			resp, err := client.Post(cfg.baseURL+"/appointments", "application/json", bytes.NewReader(body))
			if err != nil {
				metrics.record(time.Since(began), 0)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			metrics.record(time.Since(began), resp.StatusCode)
			if resp.StatusCode == http.StatusCreated {
				atomic.AddInt64(&winners, 1)
			}
		}(w)
	}

	wg.Wait()
	return winners
}
