package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"workseald/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type encryptRequest struct {
	DataBase64   string `json:"data_base64"`
	CloudRegion  string `json:"cloud_region"`
	WorkloadType string `json:"workload_type"`
}

type decryptResponse struct {
	DataBase64 string            `json:"data_base64"`
	Provenance domain.Provenance `json:"provenance"`
}

type storeResponse struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	RecordID string `json:"record_id"`
}

func (s *Server) handleEncrypt(c *gin.Context) {
	if !s.enforceRateLimit(c, "workloads:encrypt") {
		return
	}
	var req encryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.CloudRegion == "" || req.WorkloadType == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "cloud_region and workload_type are required")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "data_base64 is not valid base64")
		return
	}

	pkg, err := s.hybrid.EncryptWorkload(c.Request.Context(), data, req.CloudRegion, req.WorkloadType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (s *Server) handleDecrypt(c *gin.Context) {
	if !s.enforceRateLimit(c, "workloads:decrypt") {
		return
	}
	var pkg domain.WorkloadPackage
	if err := c.ShouldBindJSON(&pkg); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	out, err := s.hybrid.DecryptWorkload(pkg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, decryptResponse{
		DataBase64: base64.StdEncoding.EncodeToString(out.Data),
		Provenance: out.Provenance,
	})
}

func (s *Server) handleStore(c *gin.Context) {
	if !s.enforceRateLimit(c, "workloads:store") {
		return
	}
	name := c.Param("name")
	var pkg domain.WorkloadPackage
	if err := c.ShouldBindJSON(&pkg); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	record, err := s.storer.StoreWorkload(c.Request.Context(), name, pkg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, storeResponse{
		Name:     record.Name,
		Location: record.Location,
		RecordID: record.ID,
	})
}

func (s *Server) handleFetch(c *gin.Context) {
	if !s.enforceRateLimit(c, "workloads:fetch") {
		return
	}
	pkg, _, err := s.storer.FetchWorkload(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrIntegrityFailure):
		status, code = http.StatusBadRequest, "INTEGRITY_FAILURE"
	case errors.Is(err, domain.ErrMalformedKey):
		status, code = http.StatusBadRequest, "MALFORMED_KEY"
	case errors.Is(err, domain.ErrDecryptionFailed):
		status, code = http.StatusBadRequest, "DECRYPTION_FAILED"
	case errors.Is(err, domain.ErrUnsupportedCurve):
		status, code = http.StatusBadRequest, "UNSUPPORTED_CURVE"
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code = http.StatusForbidden, "POLICY_DENIED"
	case errors.Is(err, domain.ErrPackageExists):
		status, code = http.StatusConflict, "PACKAGE_EXISTS"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
