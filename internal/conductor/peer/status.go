package peer

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Status is the document a peer serves on GET /status. Runners report a
// worker pool, gateways and managers report ok/version/uptime. The raw
// document is kept so it can be relayed to observers untouched.
type Status struct {
	raw []byte
}

// Worker is one entry of a runner's workerPool.
type Worker struct {
	User   float64
	System float64
}

// Load is the selection metric of a worker.
func (w Worker) Load() float64 { return w.User + w.System }

// ParseStatus validates body and wraps it. Empty documents, null and {} are
// reported as ErrEmptyStatus.
func ParseStatus(body []byte) (*Status, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil, ErrEmptyStatus
	}
	doc := gjson.ParseBytes(trimmed)
	if !doc.IsObject() || len(doc.Map()) == 0 {
		return nil, ErrEmptyStatus
	}
	return &Status{raw: append([]byte(nil), trimmed...)}, nil
}

func (s *Status) get(path string) gjson.Result {
	return gjson.GetBytes(s.raw, path)
}

// Workers returns the worker pool, empty for peers that do not run work.
func (s *Status) Workers() []Worker {
	pool := s.get("workerPool")
	if !pool.IsArray() {
		return nil
	}
	var workers []Worker
	pool.ForEach(func(_, w gjson.Result) bool {
		workers = append(workers, Worker{
			User:   w.Get("cpuUsage.user").Float(),
			System: w.Get("cpuUsage.system").Float(),
		})
		return true
	})
	return workers
}

func (s *Status) OK() bool { return s.get("ok").Bool() }

func (s *Status) Version() string { return s.get("version").String() }

func (s *Status) Uptime() float64 { return s.get("uptime").Float() }

// Raw returns the document as served by the peer.
func (s *Status) Raw() json.RawMessage { return json.RawMessage(s.raw) }

func (s *Status) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return s.raw, nil
}
