package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/db"
	"github.com/COG-GTM/devin-hhs/refdata"
)

const (
	defaultDetailLimit = 50
	maxDetailLimit     = 500
	sourcesNote        = "All data used in DEVIN//HHS is from publicly available government sources."
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": s.store != nil,
	})
}

func (s *Server) handleOutliers(c *gin.Context) {
	if s.reports.Outliers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Outlier report not computed"})
		return
	}
	c.JSON(http.StatusOK, s.reports.Outliers)
}

func (s *Server) handleFederalOutliers(c *gin.Context) {
	c.JSON(http.StatusOK, s.reports.States)
}

func (s *Server) handleFederalAnalysis(c *gin.Context) {
	if s.reports.Federal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No FMAP data loaded"})
		return
	}
	c.JSON(http.StatusOK, s.reports.Federal)
}

func (s *Server) handleRisk(c *gin.Context) {
	if s.reports.Risk == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Risk scores not computed"})
		return
	}
	c.JSON(http.StatusOK, s.reports.Risk)
}

func (s *Server) handlePriceVariance(c *gin.Context) {
	if s.reports.PriceVariance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Price variance not computed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"codes": s.reports.PriceVariance,
		"count": len(s.reports.PriceVariance),
	})
}

func (s *Server) handleEfficiency(c *gin.Context) {
	if s.reports.Federal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No FMAP data loaded"})
		return
	}
	c.JSON(http.StatusOK, s.reports.Federal.Efficiency)
}

func (s *Server) handleRankings(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := queryInt(c, "limit", analysis.DefaultRankingLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis.Rankings(s.reports.Providers, c.Query("sort"), page, limit, s.ds))
}

func (s *Server) handleSources(c *gin.Context) {
	var sources []refdata.Source
	if t := c.Query("type"); t != "" {
		sources = s.ds.SourcesByType(t)
	} else {
		sources = s.ds.Sources()
	}
	if sources == nil {
		sources = []refdata.Source{}
	}
	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"count":   len(sources),
		"note":    sourcesNote,
	})
}

func (s *Server) handleProvider(c *gin.Context) {
	npi := c.Param("npi")
	if !validNPI(npi) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "NPI must be 10 digits"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not configured"})
		return
	}

	var (
		codes   []db.ProviderCode
		monthly []db.MonthlySpending
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		codes, err = s.store.ProviderByNPI(ctx, npi)
		return err
	})
	g.Go(func() (err error) {
		monthly, err = s.store.MonthlyByNPI(ctx, npi)
		return err
	})
	if err := g.Wait(); err != nil {
		s.detailError(c, err, "Provider not found", "Failed to fetch provider data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"npi":             npi,
		"name":            s.ds.ProviderName(npi),
		"provider":        codes,
		"monthlySpending": monthly,
	})
}

func (s *Server) handleHCPCS(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if !validHCPCS(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid HCPCS code"})
		return
	}
	limit, err := queryInt(c, "limit", defaultDetailLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit = min(max(limit, 1), maxDetailLimit)
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not configured"})
		return
	}

	var (
		providers []db.CodeProvider
		monthly   []db.MonthlySpending
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		providers, err = s.store.ProvidersByHCPCS(ctx, code, limit)
		return err
	})
	g.Go(func() (err error) {
		monthly, err = s.store.MonthlyByHCPCS(ctx, code)
		return err
	})
	if err := g.Wait(); err != nil {
		s.detailError(c, err, "HCPCS code not found", "Failed to fetch HCPCS data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":            code,
		"definition":      s.ds.HCPCSDefinition(code),
		"category":        refdata.HCPCSCategory(code),
		"data":            providers,
		"monthlySpending": monthly,
	})
}

func (s *Server) detailError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	s.log.WithError(err).WithField("path", c.Request.URL.Path).Error("detail query failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": failed})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func validNPI(npi string) bool {
	if len(npi) != 10 {
		return false
	}
	_, err := strconv.ParseUint(npi, 10, 64)
	return err == nil
}

// validHCPCS accepts up to five uppercase letters and digits.
func validHCPCS(code string) bool {
	if code == "" || len(code) > 5 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
