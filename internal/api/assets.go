package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playcraft/studio-backend/internal/relay"
	"github.com/playcraft/studio-backend/internal/storage"
)

func (s *Server) registerAssets(api huma.API) {
	// Mirror an external file into the asset store. Every call stores a fresh
	// copy under a new key; callers that want dedup do it on their side.
	huma.Register(api, huma.Operation{
		OperationID:   "relayAsset",
		Method:        http.MethodPost,
		Path:          "/api/assets",
		Tags:          []string{"Assets"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 502},
	}, func(ctx context.Context, input *RelayAssetInput) (*RelayAssetOutput, error) {
		rc := RequestContextFrom(ctx)

		stored, err := s.relay.Relay(ctx, input.Body.URL, input.Folder)
		if err != nil {
			var dlErr *relay.DownloadError
			if errors.As(err, &dlErr) {
				assetRelaysTotal.WithLabelValues("download_error").Inc()
				slog.Warn("asset download failed", "url", dlErr.URL, "upstream_status", dlErr.StatusCode)
				return nil, huma.NewError(http.StatusBadGateway, dlErr.Error())
			}
			assetRelaysTotal.WithLabelValues("store_error").Inc()
			slog.Error("asset relay failed", "url", input.Body.URL, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}
		assetRelaysTotal.WithLabelValues("stored").Inc()

		if err := rc.DB.SaveAsset(ctx, &storage.Asset{
			Key:         stored.Key,
			URL:         stored.URL,
			Folder:      input.Folder,
			ContentType: stored.ContentType,
			CreatedBy:   rc.Identity.ID,
		}); err != nil {
			// The object is already in the store; losing the index row is
			// recoverable, so log and still return the stored location.
			slog.Error("asset record save failed", "key", stored.Key, "error", err)
		}

		out := &RelayAssetOutput{}
		out.Body.URL = stored.URL
		out.Body.Key = stored.Key
		return out, nil
	})

	// Direct upload: the caller ships the bytes instead of a source URL.
	huma.Register(api, huma.Operation{
		OperationID:   "uploadAsset",
		Method:        http.MethodPost,
		Path:          "/api/assets/upload",
		Tags:          []string{"Assets"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400},
	}, func(ctx context.Context, input *UploadAssetInput) (*RelayAssetOutput, error) {
		rc := RequestContextFrom(ctx)
		if len(input.RawBody) == 0 {
			return nil, huma.NewError(http.StatusBadRequest, "empty body")
		}

		stored, err := s.relay.Store(ctx, input.Folder, input.ContentType, input.RawBody)
		if err != nil {
			assetRelaysTotal.WithLabelValues("store_error").Inc()
			slog.Error("asset upload failed", "folder", input.Folder, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}
		assetRelaysTotal.WithLabelValues("stored").Inc()

		if err := rc.DB.SaveAsset(ctx, &storage.Asset{
			Key:         stored.Key,
			URL:         stored.URL,
			Folder:      input.Folder,
			ContentType: stored.ContentType,
			CreatedBy:   rc.Identity.ID,
		}); err != nil {
			slog.Error("asset record save failed", "key", stored.Key, "error", err)
		}

		out := &RelayAssetOutput{}
		out.Body.URL = stored.URL
		out.Body.Key = stored.Key
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listAssets",
		Method:      http.MethodGet,
		Path:        "/api/assets",
		Tags:        []string{"Assets"},
	}, func(ctx context.Context, input *ListAssetsInput) (*ListAssetsOutput, error) {
		rc := RequestContextFrom(ctx)

		assets, err := rc.DB.ListAssetsByFolder(ctx, input.Folder)
		if err != nil {
			slog.Error("asset listing failed", "folder", input.Folder, "error", err)
			return nil, huma.NewError(http.StatusInternalServerError, "internal error")
		}

		out := &ListAssetsOutput{}
		out.Body.Assets = make([]AssetPayload, 0, len(assets))
		for _, a := range assets {
			out.Body.Assets = append(out.Body.Assets, AssetPayload{
				Key:         a.Key,
				URL:         a.URL,
				ContentType: a.ContentType,
			})
		}
		return out, nil
	})
}
