package handler

import (
	"github.com/mesaops/identity-api/internal/core/domain"
	"github.com/mesaops/identity-api/internal/core/ports"
)

func toSessionResponse(s *domain.Session) *sessionResponse {
	if s == nil {
		return nil
	}
	return &sessionResponse{
		ID:     s.ID,
		UserID: s.UserID,
		Device: deviceResponse{
			Class:   string(s.Device.Class),
			OS:      s.Device.OS,
			Browser: s.Device.Browser,
		},
		IPAddress: s.IPAddress,
		Location: locationResponse{
			City:    s.Location.City,
			Region:  s.Location.Region,
			Country: s.Location.Country,
		},
		LastActiveAt: s.LastActiveAt,
		CreatedAt:    s.CreatedAt,
		Expires:      s.Expires,
	}
}

func toSessionViews(views []ports.SessionView) []sessionResponse {
	out := make([]sessionResponse, 0, len(views))
	for _, v := range views {
		resp := toSessionResponse(&v.Session)
		resp.Status = string(v.Status)
		out = append(out, *resp)
	}
	return out
}

func toHistoryEntries(entries []domain.LoginAuditEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			UserID:    e.UserID,
			Email:     e.Email,
			IPAddress: e.IPAddress,
			Device: deviceResponse{
				Class:   string(e.Device.Class),
				OS:      e.Device.OS,
				Browser: e.Device.Browser,
			},
			Location: locationResponse{
				City:    e.Location.City,
				Region:  e.Location.Region,
				Country: e.Location.Country,
			},
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
