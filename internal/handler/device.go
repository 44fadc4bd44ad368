package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"hrops/internal/device"
	"hrops/internal/domain"
	"hrops/internal/middleware"
	"hrops/pkg/errors"
	"hrops/pkg/logger"
	"hrops/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DeviceHandler is the administrative management surface for device
// records and company device policy. The login gate never goes through
// these endpoints.
type DeviceHandler struct {
	devices   *device.Service
	policy    *device.PolicyResolver
	validator *validator.Validator
	logger    logger.Logger
}

func NewDeviceHandler(devices *device.Service, policy *device.PolicyResolver, val *validator.Validator, log logger.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices:   devices,
		policy:    policy,
		validator: val,
		logger:    log,
	}
}

// List returns every device record for the caller's company.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.CompanyIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusForbidden, "Missing company context")
		return
	}

	records, err := h.devices.ListByCompany(r.Context(), companyID)
	if err != nil {
		h.logger.Error("Failed to list devices", logger.Fields{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"devices": records})
}

// Approve trusts a pending device.
func (h *DeviceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.devices.Approve)
}

// Reject blocks a device.
func (h *DeviceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.devices.Reject)
}

func (h *DeviceHandler) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid device id")
		return
	}

	if err := op(r.Context(), id); err != nil {
		if stderrors.Is(err, errors.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, "Device not found")
			return
		}
		h.logger.Error("Device decision failed", logger.Fields{"device_record_id": id, "error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Device update failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete removes a device record, freeing a quota slot.
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid device id")
		return
	}

	if err := h.devices.Remove(r.Context(), id); err != nil {
		if stderrors.Is(err, errors.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, "Device not found")
			return
		}
		h.logger.Error("Device delete failed", logger.Fields{"device_record_id": id, "error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Device delete failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetPolicy returns the effective device limit for the caller's company.
func (h *DeviceHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.targetCompany(r)
	if !ok {
		respondError(w, http.StatusForbidden, "Missing company context")
		return
	}

	limit, err := h.policy.MaxDeviceLimit(r.Context(), companyID)
	if err != nil {
		if stderrors.Is(err, errors.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "Company not found")
			return
		}
		h.logger.Error("Failed to resolve device policy", logger.Fields{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to resolve device policy")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"company_id":       companyID,
		"max_device_limit": limit,
	})
}

type updatePolicyRequest struct {
	MaxDeviceLimit int `json:"max_device_limit" validate:"required,min=1,max=100"`
}

// UpdatePolicy sets a company's device limit. Superadmin only.
func (h *DeviceHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.targetCompany(r)
	if !ok {
		respondError(w, http.StatusForbidden, "Missing company context")
		return
	}

	var req updatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.policy.SetMaxDeviceLimit(r.Context(), companyID, req.MaxDeviceLimit); err != nil {
		if stderrors.Is(err, errors.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "Company not found")
			return
		}
		h.logger.Error("Failed to update device policy", logger.Fields{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to update device policy")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"company_id":       companyID,
		"max_device_limit": req.MaxDeviceLimit,
	})
}

// targetCompany resolves which tenant an admin request applies to.
// Superadmins may target any company via the company_id query parameter;
// everyone else is scoped to their own.
func (h *DeviceHandler) targetCompany(r *http.Request) (uuid.UUID, bool) {
	if role, ok := middleware.RoleFromContext(r.Context()); ok && role == domain.RoleSuperadmin {
		if raw := r.URL.Query().Get("company_id"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				return id, true
			}
		}
	}
	return middleware.CompanyIDFromContext(r.Context())
}
