package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/playout/internal/api/models"
	"github.com/smazurov/playout/internal/format"
	"github.com/smazurov/playout/internal/media"
)

// referenceFrame is used to show each format's source buffer size.
var referenceFrame = media.Dimensions{Width: 1920, Height: 1080}

func (s *Server) registerFormatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-formats",
		Method:      http.MethodGet,
		Path:        "/api/formats",
		Summary:     "List Pixel Formats",
		Description: "Get the supported capture pixel formats and their source buffer layout",
		Tags:        []string{"formats"},
		Security:    []map[string][]string{}, // No auth
	}, func(_ context.Context, _ *struct{}) (*models.FormatListResponse, error) {
		formats := format.Formats()
		resp := &models.FormatListResponse{}
		resp.Body.Formats = make([]models.FormatData, 0, len(formats))
		for _, f := range formats {
			d, err := format.Lookup(f)
			if err != nil {
				return nil, huma.Error500InternalServerError("format table is inconsistent", err)
			}
			src := d.SourceDimensions(referenceFrame)
			resp.Body.Formats = append(resp.Body.Formats, models.FormatData{
				Name:          d.Name,
				FourCC:        d.FourCC,
				Description:   d.Description,
				BytesPerTexel: d.BytesPerTexel,
				SourceWidth:   src.Width,
				SourceHeight:  src.Height,
			})
		}
		return resp, nil
	})
}
