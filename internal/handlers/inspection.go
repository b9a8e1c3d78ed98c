package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/services"
	"github.com/clearlane/inspection-backend/internal/types"
)

type InspectionHandler struct {
	log               *logger.Logger
	inspectionService services.InspectionService
	fraudService      services.FraudService
}

func NewInspectionHandler(log *logger.Logger, isvc services.InspectionService, fsvc services.FraudService) *InspectionHandler {
	return &InspectionHandler{
		log:               log.With("handler", "InspectionHandler"),
		inspectionService: isvc,
		fraudService:      fsvc,
	}
}

type createInspectionRequest struct {
	OrderRef           string `json:"order_ref"`
	BuyerName          string `json:"buyer_name"`
	BuyerEmail         string `json:"buyer_email"`
	SellerName         string `json:"seller_name"`
	SellerEmail        string `json:"seller_email"`
	DeclaredPriceCents int64  `json:"declared_price_cents"`
	DeclaredVIN        string `json:"declared_vin" binding:"required"`
	DeclaredMileage    int    `json:"declared_mileage"`
	SellerZIP          string `json:"seller_zip"`
	Notes              string `json:"notes"`
	DamageDisclosed    bool   `json:"damage_disclosed"`
}

type createInspectionResponse struct {
	Inspection     *types.Inspection `json:"inspection"`
	UploadToken    string            `json:"upload_token"`
	TokenExpiresAt time.Time         `json:"token_expires_at"`
}

// POST /api/inspections
// Create an inspection; the response carries the upload token exactly once.
func (h *InspectionHandler) Create(c *gin.Context) {
	var req createInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	inspection := &types.Inspection{
		OrderRef:           req.OrderRef,
		BuyerName:          req.BuyerName,
		BuyerEmail:         req.BuyerEmail,
		SellerName:         req.SellerName,
		SellerEmail:        req.SellerEmail,
		DeclaredPriceCents: req.DeclaredPriceCents,
		DeclaredVIN:        req.DeclaredVIN,
		DeclaredMileage:    req.DeclaredMileage,
		SellerZIP:          req.SellerZIP,
		Notes:              req.Notes,
		DamageDisclosed:    req.DamageDisclosed,
	}

	created, token, expiry, err := h.inspectionService.Create(c.Request.Context(), inspection)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_failed", err)
		return
	}
	RespondCreated(c, createInspectionResponse{
		Inspection:     created,
		UploadToken:    token,
		TokenExpiresAt: expiry,
	})
}

// GET /api/inspections/:id
func (h *InspectionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	inspection, err := h.inspectionService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, inspection)
}

// POST /api/inspections/:id/score
// Recompute the fraud assessment from the current snapshot.
func (h *InspectionHandler) Score(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	assessment, err := h.fraudService.Score(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "score_failed", err)
		return
	}
	RespondOK(c, assessment)
}

// POST /api/inspections/:id/approve
func (h *InspectionHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	inspection, err := h.inspectionService.Approve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusConflict, "approve_failed", err)
		return
	}
	RespondOK(c, inspection)
}
