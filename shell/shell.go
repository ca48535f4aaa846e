// Package shell implements the operator shell: a small HTTP API for
// inspecting and nudging a running router.
package shell

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mavrouter/link"
	"mavrouter/router"
)

// Shell exposes a read/control surface over a running Router's links:
// list_links, link_quality, set_drop_rate, set_up.
type Shell struct {
	rtr *router.Router
}

// New returns a Shell over rtr.
func New(rtr *router.Router) *Shell {
	return &Shell{rtr: rtr}
}

// Handler builds the chi mux for this shell's HTTP API.
func (s *Shell) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/links", func(r chi.Router) {
		r.Get("/", s.listLinks)
		r.Get("/{id}/quality", s.linkQuality)
		r.Post("/{id}/drop_rate", s.setDropRate)
		r.Post("/{id}/up", s.setUp)
	})

	return r
}

type sysidStats struct {
	SysID          uint8   `json:"sysid"`
	PacketsRx      uint64  `json:"packets_received"`
	PacketsLost    uint64  `json:"packets_lost"`
	PacketsDropped uint64  `json:"packets_dropped"`
	LossPercent    float64 `json:"loss_percent"`
}

type linkSummary struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Kind          string       `json:"kind"`
	Up            bool         `json:"up"`
	Kill          bool         `json:"kill"`
	SikRadio      bool         `json:"sik_radio"`
	TotalReceived uint64       `json:"total_received"`
	TotalSent     uint64       `json:"total_sent"`
	OutboundDepth int64        `json:"outbound_depth"`
	DropRate      float64      `json:"drop_rate"`
	Systems       []sysidStats `json:"systems"`
}

// listLinks answers GET /links, the operator shell's "list_links" query.
func (s *Shell) listLinks(w http.ResponseWriter, r *http.Request) {
	var out []linkSummary
	for _, l := range s.rtr.Links() {
		info := l.Info()
		snap := l.Stats().Snapshot()
		systems := make([]sysidStats, 0, len(snap))
		for sysID, st := range snap {
			systems = append(systems, sysidStats{
				SysID:          sysID,
				PacketsRx:      st.PacketsRx,
				PacketsLost:    st.PacketsLost,
				PacketsDropped: st.PacketsDropped,
				LossPercent:    st.LossPercent(),
			})
		}
		sort.Slice(systems, func(i, j int) bool { return systems[i].SysID < systems[j].SysID })
		out = append(out, linkSummary{
			ID:            l.ID(),
			Name:          info.Name,
			Kind:          info.Kind,
			Up:            l.Up(),
			Kill:          l.IsKill(),
			SikRadio:      info.SikRadio,
			TotalReceived: l.TotalReceived(),
			TotalSent:     l.TotalSent(),
			OutboundDepth: l.OutboundDepth(),
			DropRate:      l.DropPolicy().Probability(),
			Systems:       systems,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type qualityResponse struct {
	LinkID    int    `json:"link_id"`
	SikRadio  bool   `json:"sik_radio"`
	RSSI      uint8  `json:"rssi"`
	RemRSSI   uint8  `json:"remote_rssi"`
	Noise     uint8  `json:"noise"`
	RemNoise  uint8  `json:"remote_noise"`
	RxErrors  uint16 `json:"rx_errors"`
	TxBuf     uint8  `json:"tx_buffer"`
	LinkDelay int64  `json:"link_delay_ms"`
}

// linkQuality answers GET /links/{id}/quality, the operator shell's
// "link_quality" query; it is meaningful only for SiK radio links but
// is safe to call on any link.
func (s *Shell) linkQuality(w http.ResponseWriter, r *http.Request) {
	l, ok := s.findLink(w, r)
	if !ok {
		return
	}
	q := l.Quality()
	info := l.Info()
	writeJSON(w, http.StatusOK, qualityResponse{
		LinkID:    l.ID(),
		SikRadio:  info.SikRadio,
		RSSI:      q.RSSI,
		RemRSSI:   q.RemRSSI,
		Noise:     q.Noise,
		RemNoise:  q.RemNoise,
		RxErrors:  q.RxErrors,
		TxBuf:     q.TxBuf,
		LinkDelay: q.LinkDelay.Milliseconds(),
	})
}

type dropRateRequest struct {
	Probability float64 `json:"probability"`
}

// setDropRate answers POST /links/{id}/drop_rate, the operator shell's
// "set_drop_rate" command.
func (s *Shell) setDropRate(w http.ResponseWriter, r *http.Request) {
	l, ok := s.findLink(w, r)
	if !ok {
		return
	}
	var req dropRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	l.DropPolicy().SetProbability(req.Probability)
	writeJSON(w, http.StatusOK, map[string]float64{"probability": l.DropPolicy().Probability()})
}

type setUpRequest struct {
	Up bool `json:"up"`
}

// setUp answers POST /links/{id}/up, the operator shell's "set_up"
// command.
func (s *Shell) setUp(w http.ResponseWriter, r *http.Request) {
	l, ok := s.findLink(w, r)
	if !ok {
		return
	}
	var req setUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	l.SetUp(req.Up)
	writeJSON(w, http.StatusOK, map[string]bool{"up": l.Up()})
}

func (s *Shell) findLink(w http.ResponseWriter, r *http.Request) (*link.Base, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid link id", http.StatusBadRequest)
		return nil, false
	}
	for _, l := range s.rtr.Links() {
		if l.ID() == id {
			return l, true
		}
	}
	http.Error(w, "link not found", http.StatusNotFound)
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
