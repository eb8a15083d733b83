package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/matzehuels/npmburst/pkg/buildinfo"
	"github.com/matzehuels/npmburst/pkg/cache"
	"github.com/matzehuels/npmburst/pkg/drilldown"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/observability"
	"github.com/matzehuels/npmburst/pkg/pipeline"
	"github.com/matzehuels/npmburst/pkg/render/sink"
	"github.com/matzehuels/npmburst/pkg/urlstate"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Query parameters beyond the chart URL state.
const (
	paramRefresh   = "refresh"
	paramHighlight = "highlight"
	paramName      = "name"
)

// options decodes the chart state of r, filling in the server defaults.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	st, err := urlstate.Decode(q)
	if err != nil {
		return pipeline.Options{}, err
	}
	if q.Get(urlstate.ParamPackage) == "" {
		st.Package = s.pkg
	}
	if q.Get(urlstate.ParamLPF) == "" {
		st.Threshold = s.threshold
	}

	opts := pipeline.FromState(st)
	opts.Refresh, _ = strconv.ParseBool(q.Get(paramRefresh))
	opts.Logger = s.logger.With("request", shortID(RequestIDFromContext(r.Context())))
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	opts, err := s.options(r)
	if err != nil {
		s.writeErr(w, r, err)
		return nil, false
	}
	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeErr(w, r, err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	d, err := s.runner.Fetch(r.Context(), opts)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type treeResponse struct {
	Package  string            `json:"package"`
	Total    int64             `json:"total"`
	State    string            `json:"state"`
	Selected string            `json:"selected"`
	Expanded []string          `json:"expanded"`
	Warnings []string          `json:"warnings,omitempty"`
	Tree     *versiontree.Node `json:"tree"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	res, ok := s.execute(w, r)
	if !ok {
		return
	}
	st := res.State()
	out := treeResponse{
		Package:  res.Tree.Package,
		Total:    res.Total(),
		State:    st.Query(),
		Selected: st.Selected,
		Expanded: st.Expanded.Names(),
		Tree:     res.Tree.Root,
	}
	for _, warn := range res.Warnings() {
		out.Warnings = append(out.Warnings, warn.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	res, ok := s.execute(w, r)
	if !ok {
		return
	}
	node := res.Tree.Find(res.Controller.Focus().Name())
	if node == nil {
		node = res.Tree.Root
	}
	writeJSON(w, http.StatusOK, drilldown.Build(node, r.URL.Query().Get(paramHighlight)))
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	c, keyer := s.chartCache()
	key := keyer.HTTPKey("chart", opts.Package+"?"+opts.State().Query())
	if !opts.Refresh {
		if data, ok, _ := c.Get(r.Context(), key); ok {
			writeSVG(w, data, "HIT")
			return
		}
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	start := time.Now()
	svg := sink.RenderSVG(res.Controller,
		sink.WithTitle(res.Tree.Package+" downloads by version"),
		sink.WithInteraction(),
	)
	observability.Pipeline().OnRenderComplete(r.Context(), pipeline.FormatSVG, len(svg), time.Since(start), nil)

	if err := c.Set(r.Context(), key, svg, cache.TTLTree); err != nil {
		opts.Logger.Debug("chart not cached", "err", err)
	}
	writeSVG(w, svg, "MISS")
}

func writeSVG(w http.ResponseWriter, svg []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

func (s *Server) handleChartJSON(w http.ResponseWriter, r *http.Request) {
	res, ok := s.execute(w, r)
	if !ok {
		return
	}
	start := time.Now()
	data, err := sink.RenderJSON(res.Controller,
		sink.WithJSONPackage(res.Tree.Package),
		sink.WithJSONState(res.State().Query()),
		sink.WithJSONTree(res.Tree.Root),
	)
	observability.Pipeline().OnRenderComplete(r.Context(), pipeline.FormatJSON, len(data), time.Since(start), err)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type activateResponse struct {
	State      string   `json:"state"`
	Selected   string   `json:"selected"`
	Expanded   []string `json:"expanded"`
	Aggregated bool     `json:"aggregated"`
	Rebuild    bool     `json:"rebuild"`
}

// handleActivate applies a click to the chart described by the query and
// returns the URL state the front end should navigate to.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get(paramName)
	if name == "" {
		writeError(w, r, http.StatusBadRequest, errs.ErrCodeInvalidInput, "missing name parameter", false)
		return
	}
	res, ok := s.execute(w, r)
	if !ok {
		return
	}

	current := res.State()
	tr, err := res.Controller.Activate(name)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	st := current.Select(tr.Selection.Name, tr.Selection.Aggregated)
	writeJSON(w, http.StatusOK, activateResponse{
		State:      st.Query(),
		Selected:   st.Selected,
		Expanded:   st.Expanded.Names(),
		Aggregated: tr.Selection.Aggregated,
		Rebuild:    tr.NeedsRebuild,
	})
}
