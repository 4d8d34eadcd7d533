package server

import (
	"time"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/internal/state"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// allTopics is sent to a client when it connects.
var allTopics = []string{TopicDatabase, TopicTables, TopicBrowser, TopicQuery}

type databaseView struct {
	State     string `json:"state"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Backend   string `json:"backend,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

type tablesView struct {
	State  string               `json:"state"`
	Tables []core.DatabaseTable `json:"tables"`
	Error  string               `json:"error,omitempty"`
}

type pageView struct {
	State     string             `json:"state"`
	Table     string             `json:"table"`
	Page      int64              `json:"page"`
	PageCount int64              `json:"pageCount"`
	PageSize  int64              `json:"pageSize"`
	Count     int64              `json:"count"`
	Rows      []core.DatabaseRow `json:"rows"`
	Error     string             `json:"error,omitempty"`
}

type queryView struct {
	State     string             `json:"state"`
	SQL       string             `json:"sql"`
	Rows      []core.DatabaseRow `json:"rows"`
	ElapsedMS float64            `json:"elapsedMs"`
	Error     string             `json:"error,omitempty"`
}

func (s *Server) databaseView() databaseView {
	snap := s.store.Database().Snapshot()
	primary, secondary := state.Title(s.store)
	v := databaseView{
		State:     snap.State.String(),
		Primary:   primary,
		Secondary: secondary,
		Error:     snap.Message(),
	}
	if snap.State == resource.Loaded {
		v.Backend = string(snap.Value.Kind)
		v.Path = snap.Value.Path()
	}
	return v
}

func (s *Server) tablesView() tablesView {
	snap := s.tables.Resource().Snapshot()
	v := tablesView{State: snap.State.String(), Tables: snap.Value, Error: snap.Message()}
	if v.Tables == nil {
		v.Tables = []core.DatabaseTable{}
	}
	return v
}

func (s *Server) browserView() pageView {
	snap := s.browser.Resource().Snapshot()
	if snap.State == resource.Loaded {
		return newPageView(snap.State, snap.Value)
	}
	table, page := s.browser.Selection()
	v := newPageView(snap.State, state.Page{Table: table, Page: page, PageSize: s.browser.PageSize()})
	v.Error = snap.Message()
	return v
}

func newPageView(st resource.State, p state.Page) pageView {
	rows := p.Rows
	if rows == nil {
		rows = []core.DatabaseRow{}
	}
	return pageView{
		State:     st.String(),
		Table:     p.Table,
		Page:      p.Page,
		PageCount: p.PageCount(),
		PageSize:  p.PageSize,
		Count:     p.Count,
		Rows:      rows,
	}
}

func (s *Server) queryView() queryView {
	snap := s.exec.Resource().Snapshot()
	v := queryView{
		State: snap.State.String(),
		SQL:   snap.Value.Query,
		Rows:  snap.Value.Rows,
		Error: snap.Message(),
	}
	if snap.State == resource.Loaded {
		v.ElapsedMS = float64(snap.Value.Elapsed) / float64(time.Millisecond)
	}
	if v.Rows == nil {
		v.Rows = []core.DatabaseRow{}
	}
	return v
}

// signals builds the datastar signal patch for topics.
func (s *Server) signals(topics []string) map[string]any {
	out := make(map[string]any, len(topics))
	for _, t := range topics {
		switch t {
		case TopicDatabase:
			out[t] = s.databaseView()
		case TopicTables:
			out[t] = s.tablesView()
		case TopicBrowser:
			out[t] = s.browserView()
		case TopicQuery:
			out[t] = s.queryView()
		}
	}
	return out
}
