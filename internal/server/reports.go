package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
)

const contextReportDateKey = "report_date"

type submitReportRequest struct {
	Date               string                           `json:"date"`
	ImportedCustomers  *int64                           `json:"imported_customers"`
	CertifiedCustomers *int64                           `json:"certified_customers"`
	TodayCoverage      *int64                           `json:"today_coverage"`
	TodayReplies       *int64                           `json:"today_replies"`
	PerformanceLines   []reportdomain.PerformanceFields `json:"performance_lines"`
	OpportunityLines   []reportdomain.OpportunityFields `json:"opportunity_lines"`
}

func (s *Server) SubmitReport(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req submitReportRequest
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set(contextReportDateKey, date.Format(dateOnlyLayout))

	resp, err := s.reportSvc.Submit(c.Request.Context(), a, reportdomain.SubmitRequest{
		Date: date,
		Gauges: reportdomain.GaugeMetrics{
			ImportedCustomers:  req.ImportedCustomers,
			CertifiedCustomers: req.CertifiedCustomers,
			TodayCoverage:      req.TodayCoverage,
			TodayReplies:       req.TodayReplies,
		},
		PerformanceLines: req.PerformanceLines,
		OpportunityLines: req.OpportunityLines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMyReports(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.reportSvc.ListMine(c.Request.Context(), a, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetReportByDate answers with null data when the actor has no report for
// the date.
func (s *Server) GetReportByDate(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	date, err := parseDate(c.Param("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.GetByDate(c.Request.Context(), a, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteReport(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.reportSvc.DeleteReport(c.Request.Context(), a, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) UpdatePerformanceLine(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reportdomain.PerformanceFields
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.UpdatePerformanceLine(c.Request.Context(), a, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePerformanceLine(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.reportSvc.DeletePerformanceLine(c.Request.Context(), a, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateOpportunityLine(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reportdomain.OpportunityFields
	if err := decodeJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.UpdateOpportunityLine(c.Request.Context(), a, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOpportunityLine(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.reportSvc.DeleteOpportunityLine(c.Request.Context(), a, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
