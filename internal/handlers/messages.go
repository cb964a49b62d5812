package handlers

import (
	"github.com/gin-gonic/gin"

	"counseling-app-server/internal/chat"
	"counseling-app-server/internal/middleware"
	"counseling-app-server/internal/utils"
)

// MessageHandler exposes the messaging gateway over HTTP. The websocket
// path goes through chat.ServeWS; these endpoints are the pull side that
// clients use to recover after missed pushes.
type MessageHandler struct {
	Gateway *chat.Gateway
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(gateway *chat.Gateway) *MessageHandler {
	return &MessageHandler{Gateway: gateway}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
	ReceiverID    string `json:"receiverId" binding:"required,uuid"`
	Content       string `json:"content" binding:"required"`
}

// SendMessage persists and relays a message in an open conversation.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	senderID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Sender not authenticated")
		return
	}
	if senderID == req.ReceiverID {
		utils.BadRequest(c, "Cannot send a message to yourself")
		return
	}

	msg, err := h.Gateway.Send(req.AppointmentID, senderID, req.ReceiverID, req.Content)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Created(c, "Message sent successfully", msg)
}

// GetConversations returns the user's active and historical conversations
// with latest-message previews and unread counts.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	previews, err := h.Gateway.ListConversations(userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Success(c, "Conversations fetched successfully", previews)
}

// GetConversationMessages returns one conversation's messages in
// chronological order.
func (h *MessageHandler) GetConversationMessages(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	msgs, err := h.Gateway.Messages(c.Param("appointmentId"), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Success(c, "Messages fetched successfully", msgs)
}

// MarkConversationRead marks every message addressed to the caller in the
// conversation as read and returns the refreshed counters.
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	counters, err := h.Gateway.MarkRead(userID, c.Param("appointmentId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.Success(c, "Conversation marked as read", counters)
}
