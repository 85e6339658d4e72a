package httptransport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	donorhandler "bloodlink/internal/donor/handler"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	emergencyhandler "bloodlink/internal/emergency/handler"
	emergencyservice "bloodlink/internal/emergency/service"
	emergencystore "bloodlink/internal/emergency/store"
	"bloodlink/internal/location"
	"bloodlink/internal/platform/health"
	"bloodlink/internal/seeder"
)

const adminToken = "router-test-token"

// RouterSuite drives the full HTTP stack against in-memory stores.
type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	donors, err := donorservice.New(donorstore.NewInMemory(), donorservice.WithLogger(logger))
	s.Require().NoError(err)
	requests, err := emergencyservice.New(emergencystore.NewInMemory(), donors,
		emergencyservice.WithLogger(logger),
		emergencyservice.WithResolver(location.NewStatic(seeder.Places...)),
		emergencyservice.WithMatchTimeout(time.Second),
	)
	s.Require().NoError(err)

	s.router = NewRouter(Config{AdminToken: adminToken, RequestTimeout: 5 * time.Second}, logger,
		health.New("test"),
		donorhandler.New(donors, logger),
		emergencyhandler.New(requests, 30, logger),
	)
}

func (s *RouterSuite) do(method, target, body string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Token", adminToken)
		req.Header.Set("X-Admin-Actor-ID", "ops-1")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) registerDonor(name, phone, group, city, area string) string {
	rec := s.do(http.MethodPost, "/donors", `{"name":"`+name+`","phone":"`+phone+`","blood_group":"`+group+
		`","city":"`+city+`","area":"`+area+`"}`, false)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func (s *RouterSuite) TestEmergencyFlow() {
	sameArea := s.registerDonor("Karima", "+8801711000002", "O-", "Dhaka", "Mirpur")
	sameCity := s.registerDonor("Rahim", "+8801711000001", "O+", "Dhaka", "Gulshan")
	s.registerDonor("Tanvir", "+8801711000003", "A+", "Dhaka", "Mirpur")

	rec := s.do(http.MethodPost, "/requests/create", `{
		"requester_name": "Shafiq", "contact_phone": "+8801811000001", "blood_group": "O+",
		"city": "Dhaka", "area": "Mirpur", "units_required": 2, "urgency": "critical"
	}`, false)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Equal("pending", created.Status)

	rec = s.do(http.MethodPut, "/admin/requests/"+created.ID+"/approve", "", true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var approval struct {
		Request struct {
			Status          string   `json:"status"`
			ReviewedBy      string   `json:"reviewed_by"`
			MatchedDonorIDs []string `json:"matched_donor_ids"`
		} `json:"request"`
		Considered int `json:"considered"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &approval))
	s.Equal("approved", approval.Request.Status)
	s.Equal("ops-1", approval.Request.ReviewedBy)
	s.Equal([]string{sameArea, sameCity}, approval.Request.MatchedDonorIDs)
	s.Equal(2, approval.Considered)

	rec = s.do(http.MethodPut, "/admin/requests/"+created.ID+"/approve", "", true)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, "/admin/requests/"+created.ID+"/complete", "", true)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/admin/requests/stats", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"completed":1`)
}

func (s *RouterSuite) TestSearchRouteDoesNotShadowDonorLookup() {
	donorID := s.registerDonor("Karima", "+8801711000002", "O-", "Dhaka", "Mirpur")

	rec := s.do(http.MethodGet, "/donors/search?blood_group=O-&city=Dhaka&area=Mirpur", "", false)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), donorID)

	rec = s.do(http.MethodGet, "/donors/"+donorID, "", false)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestAdminRoutesRequireToken() {
	for _, target := range []string{"/admin/requests", "/admin/donors", "/admin/donors/stats"} {
		rec := s.do(http.MethodGet, target, "", false)
		s.Equal(http.StatusUnauthorized, rec.Code, target)
	}
}

func (s *RouterSuite) TestNonJSONBodyRejected() {
	req := httptest.NewRequest(http.MethodPost, "/donors", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}

func (s *RouterSuite) TestHealthAndRequestID() {
	rec := s.do(http.MethodGet, "/health/live", "", false)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}
