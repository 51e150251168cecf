package client

import (
	"context"
	"fmt"

	"toolbelt/internal/api"
)

// defaultHandlers builds the category dispatch table.
func defaultHandlers(workspace string) map[api.Category]api.Handler {
	handlers := make(map[api.Category]api.Handler, len(api.Categories))
	for _, category := range api.Categories {
		handlers[category] = notImplemented(category)
	}
	handlers[api.CategorySystem] = NewFilesystemHandler(workspace)
	return handlers
}

// notImplemented is the default for categories without a real integration.
func notImplemented(category api.Category) api.Handler {
	return api.HandlerFunc(func(ctx context.Context, params map[string]interface{}, callCtx *api.Context) (interface{}, error) {
		return nil, fmt.Errorf("no handler bound for %s tool %s: %w", category, api.ToolNameFromContext(ctx), api.ErrNotImplemented)
	})
}
