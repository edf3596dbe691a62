package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockResources fails requests whose resource type is listed. The
// dashboard only needs its documents and scripts; images and fonts are
// noise for a tab nobody looks at.
func blockResources(page *rod.Page, types []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]bool, len(types))
	for _, t := range types {
		if rt, ok := resourceType(t); ok {
			blocked[rt] = true
		}
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

// resourceType maps config names to CDP resource types. Script and
// document are never blockable: the date picker and the page need them.
func resourceType(name string) (proto.NetworkResourceType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "images", "image":
		return proto.NetworkResourceTypeImage, true
	case "fonts", "font":
		return proto.NetworkResourceTypeFont, true
	case "media":
		return proto.NetworkResourceTypeMedia, true
	case "stylesheets", "stylesheet":
		return proto.NetworkResourceTypeStylesheet, true
	}
	return "", false
}
