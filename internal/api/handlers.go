package api

import (
	"errors"
	"fmt"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/middleware"
	"github.com/fathima-sithara/realtime-service/internal/repository"
	"github.com/fathima-sithara/realtime-service/internal/service"
	"github.com/gofiber/fiber/v2"
)

type sendMessageRequest struct {
	Content   string `json:"content"`
	Type      string `json:"type"`
	ReplyToID string `json:"replyToId"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

var errBadBody = fmt.Errorf("%w: invalid request body", apperr.ErrValidation)

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if c.BodyParser(&req) != nil {
		return errBadBody
	}
	m, err := s.deps.Messages.Send(c.UserContext(), service.SendCommand{
		SenderID:       middleware.CurrentUser(c).ID,
		ConversationID: c.Params("id"),
		Content:        req.Content,
		Type:           domain.MessageType(req.Type),
		ReplyToID:      req.ReplyToID,
		Source:         "rest",
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": m})
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	page, err := s.deps.Messages.History(c.UserContext(),
		middleware.CurrentUser(c).ID,
		c.Params("id"),
		c.QueryInt("page", 1),
		c.QueryInt("limit", service.DefaultPageSize),
	)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (s *Server) editMessage(c *fiber.Ctx) error {
	var req editMessageRequest
	if c.BodyParser(&req) != nil {
		return errBadBody
	}
	m, err := s.deps.Messages.Edit(c.UserContext(), service.EditCommand{
		UserID:    middleware.CurrentUser(c).ID,
		MessageID: c.Params("id"),
		Content:   req.Content,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": m})
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	m, err := s.deps.Messages.Delete(c.UserContext(), service.DeleteCommand{
		UserID:    middleware.CurrentUser(c).ID,
		MessageID: c.Params("id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": m})
}

func (s *Server) presence(c *fiber.Ctx) error {
	uid := c.Params("user_id")
	u, err := s.deps.Users.FindUserByID(c.UserContext(), uid)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	n, err := s.deps.Presence.Connections(c.UserContext(), uid)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return c.JSON(fiber.Map{
		"userId":      uid,
		"online":      u.IsOnline,
		"connections": n,
		"lastSeen":    u.LastSeen,
	})
}
