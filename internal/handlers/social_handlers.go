package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func pathUserID(c *fiber.Ctx) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	return id, nil
}

func (h *Handler) Follow(c *fiber.Ctx) error {
	actorID, err := callerID(c)
	if err != nil {
		return err
	}
	targetID, err := pathUserID(c)
	if err != nil {
		return err
	}
	if err := h.social.Follow(c.Context(), actorID, targetID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "following"})
}

func (h *Handler) Unfollow(c *fiber.Ctx) error {
	actorID, err := callerID(c)
	if err != nil {
		return err
	}
	targetID, err := pathUserID(c)
	if err != nil {
		return err
	}
	if err := h.social.Unfollow(c.Context(), actorID, targetID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "unfollowed"})
}

func (h *Handler) ListFollowers(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	page, err := h.social.ListFollowers(c.Context(), userID, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page)
}

func (h *Handler) ListFollowing(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	page, err := h.social.ListFollowing(c.Context(), userID, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page)
}
