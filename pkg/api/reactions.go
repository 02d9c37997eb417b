package api

import (
	"alumnichat/pkg/models"
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

type reactBody struct {
	Reactor string `json:"reactor,omitempty"`
	Emoji   string `json:"emoji" validate:"required"`
}

type groupsResponse struct {
	MessageID uint64                 `json:"message_id"`
	Groups    []models.ReactionGroup `json:"groups"`
}

type paletteResponse struct {
	Palette []string `json:"palette"`
}

func (s *Server) React(ctx *fasthttp.RequestCtx) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}
	var body reactBody
	if !decodeBody(ctx, &body) {
		return
	}
	user, ok := caller(ctx, body.Reactor)
	if !ok {
		return
	}
	if err := s.deps.Reactions.React(id, user, body.Emoji); err != nil {
		fail(ctx, "react", err)
		return
	}
	s.writeGroups(ctx, id, user)
}

func (s *Server) Unreact(ctx *fasthttp.RequestCtx) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}
	user, ok := caller(ctx, queryArg(ctx, "user"))
	if !ok {
		return
	}
	if err := s.deps.Reactions.Unreact(id, user); err != nil {
		fail(ctx, "unreact", err)
		return
	}
	s.writeGroups(ctx, id, user)
}

func (s *Server) ReadReactions(ctx *fasthttp.RequestCtx) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}
	user, ok := caller(ctx, queryArg(ctx, "user"))
	if !ok {
		return
	}
	s.writeGroups(ctx, id, user)
}

func (s *Server) writeGroups(ctx *fasthttp.RequestCtx, id uint64, viewer string) {
	groups, err := s.deps.Reactions.Aggregate(id, viewer)
	if err != nil {
		fail(ctx, "read_reactions", err)
		return
	}
	_ = router.WriteJSON(ctx, groupsResponse{MessageID: id, Groups: nonNil(groups)})
}

func (s *Server) Palette(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, paletteResponse{Palette: s.deps.Reactions.Palette()})
}
