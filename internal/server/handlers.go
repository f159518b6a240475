package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/mailer"
	"github.com/prospectline/leadgen/internal/model"
	"github.com/prospectline/leadgen/internal/store"
)

func (s *Server) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"serp_configured":      s.cfg.Serp.Key != "",
		"tavily_configured":    s.cfg.Tavily.Key != "",
		"firecrawl_configured": s.cfg.Firecrawl.Key != "",
		"anthropic_configured": s.cfg.Anthropic.Key != "",
		"smtp_configured":      s.cfg.SMTP.Configured(),
		"store_driver":         s.cfg.Store.Driver,
		"validate_mode":        s.cfg.Validate.Mode,
	})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := decodeBody(r, &req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	report, err := s.pipeline.Run(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := store.LeadFilter{
		CampaignID: r.URL.Query().Get("campaign_id"),
		Status:     model.LeadStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	if err := s.store.DeleteLead(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDeleteAllLeads(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteAllLeads(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	body, err := s.outreach.Draft(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email_content": body})
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	decodeBody(r, &req) // body is optional

	result, err := s.outreach.SendInitial(r.Context(), id, req.Body)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if !result.Sent {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

// handleSendBulk resolves the requested filter to lead ids, then runs the
// send in the background. The response reports how many leads were queued;
// outcomes land in the lead statuses and the logs.
func (s *Server) handleSendBulk(w http.ResponseWriter, r *http.Request) {
	var req mailer.BulkFilter
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 && req.Status == "" && req.CampaignID == "" && !req.ExcludeReplied {
		writeError(w, http.StatusBadRequest, "lead_ids or a filter required")
		return
	}

	ids, err := s.outreach.ResolveBulk(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "no leads match the filter")
		return
	}

	go func() {
		results := s.outreach.SendBulk(context.Background(), ids)
		sent := 0
		for _, res := range results {
			if res.Result.Sent {
				sent++
			}
		}
		zap.L().Info("bulk send finished",
			zap.Int("total", len(results)),
			zap.Int("sent", sent),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "started",
		"total_leads": len(ids),
	})
}

func (s *Server) handleMarkReplied(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	lead, err := s.store.MarkReplied(r.Context(), req.Email)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if err := decodeBody(r, &req); err != nil || req.To == "" {
		writeError(w, http.StatusBadRequest, "to required")
		return
	}
	result := s.outreach.SendTest(r.Context(), req.To)
	status := http.StatusOK
	if !result.Sent {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		SearchQuery string `json:"search_query"`
		Notes       string `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	campaign, err := s.store.CreateCampaign(r.Context(), &model.Campaign{
		ID:          uuid.New().String()[:8],
		Name:        req.Name,
		SearchQuery: req.SearchQuery,
		Notes:       req.Notes,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.store.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	keepLeads := r.URL.Query().Get("keep_leads") == "true"
	if err := s.store.DeleteCampaign(r.Context(), chi.URLParam(r, "id"), !keepLeads); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	points, err := s.store.Timeseries(r.Context(), days)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if points == nil {
		points = []store.TimeseriesPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeseries": points})
}

// handleFunnel reports the outreach funnel. Each stage counts leads at or
// past it, so the funnel never widens downstream.
func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	emailed := stats.Emailed + stats.FollowedUp + stats.Replied
	followedUp := stats.FollowedUp + stats.Replied
	writeJSON(w, http.StatusOK, map[string]any{
		"funnel": []map[string]any{
			{"stage": "found", "count": stats.Total},
			{"stage": "emailed", "count": emailed},
			{"stage": "followed_up", "count": followedUp},
			{"stage": "replied", "count": stats.Replied},
		},
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.SourceBreakdown(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sources == nil {
		sources = []store.SourceCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) handleCampaignPerformance(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.CampaignPerformance(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if stats == nil {
		stats = []store.CampaignStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": stats})
}

func (s *Server) handleFollowUpCheck(w http.ResponseWriter, r *http.Request) {
	report, err := s.scheduler.CheckNow(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFollowUpStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":   s.scheduler.Running(),
		"last_scan": s.scheduler.LastScan(),
	})
}

func leadID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
