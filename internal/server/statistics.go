package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	statisticsdomain "github.com/smallbiznis/fieldreport/internal/statistics/domain"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
)

type dateRangeQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

func (q dateRangeQuery) toRange() (statisticsdomain.RangeRequest, error) {
	start, err := parseOptionalDate(q.Start)
	if err != nil {
		return statisticsdomain.RangeRequest{}, err
	}
	end, err := parseOptionalDate(q.End)
	if err != nil {
		return statisticsdomain.RangeRequest{}, err
	}
	return statisticsdomain.RangeRequest{Start: start, End: end}, nil
}

func bindRange(c *gin.Context) (statisticsdomain.RangeRequest, error) {
	var query dateRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return statisticsdomain.RangeRequest{}, bindError(err)
	}
	return query.toRange()
}

func (s *Server) GetStatistics(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rng, err := bindRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.statisticsSvc.Rollup(c.Request.Context(), a, rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBranchSales(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rng, err := bindRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.statisticsSvc.BranchSales(c.Request.Context(), a, rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReports(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rng, err := bindRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.statisticsSvc.ListReports(c.Request.Context(), a, statisticsdomain.ListReportsRequest{
		RangeRequest: rng,
		Page:         page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListManagers(c *gin.Context) {
	a, ok := requestActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.statisticsSvc.ListManagers(c.Request.Context(), a)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
