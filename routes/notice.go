package routes

import (
	"time"

	"github.com/E-ugine/apartment-mgmt-system-backend/authz"
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/services"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateNotice publishes a notice with audience targeting. Tenants and
// agents cannot create notices.
func CreateNotice(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if !actor.IsLandlord() && !actor.IsCaretaker() {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"Tenants cannot create notices", ctx)
		return
	}

	var input CreateNoticeInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.ExpiryDate != nil && !input.ExpiryDate.After(time.Now()) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Expiry date must be in the future", ctx)
		return
	}

	notice := models.Notice{
		Title:                  input.Title,
		Message:                input.Message,
		Priority:               input.Priority,
		AudienceType:           input.AudienceType,
		TargetPropertyID:       input.TargetPropertyID,
		TargetUnitID:           input.TargetUnitID,
		TargetUserID:           input.TargetUserID,
		ExpiryDate:             input.ExpiryDate,
		RequiresAcknowledgment: input.RequiresAcknowledgment,
		IsPublished:            true,
		CreatedByID:            actor.ID,
	}
	if input.IsPublished != nil {
		notice.IsPublished = *input.IsPublished
	}
	if input.PublishDate != nil {
		notice.PublishDate = *input.PublishDate
	}
	if notice.Priority == "" {
		notice.Priority = models.PriorityNormal
	}

	// Targets must resolve inside the actor's visible registry slice
	if !validateNoticeTargets(ctx, actor, &notice, input.CustomRecipientIDs) {
		return
	}

	if input.AudienceType == models.AudienceCustom {
		if len(input.CustomRecipientIDs) == 0 {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"customRecipients is required when audience type is 'custom'", ctx)
			return
		}
		var recipients []models.User
		storage.DB.Where("id IN ?", input.CustomRecipientIDs).Find(&recipients)
		if len(recipients) != len(input.CustomRecipientIDs) {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"One or more custom recipients do not exist", ctx)
			return
		}
		notice.CustomRecipients = recipients
	}

	if err := storage.DB.Create(&notice).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "notice.create", "notice", notice.ID, nil, notice)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(notice)
}

// validateNoticeTargets checks that declared targets exist and fall inside
// the creating actor's scope.
func validateNoticeTargets(ctx iris.Context, actor *models.User, notice *models.Notice, customIDs []uint) bool {
	switch notice.AudienceType {
	case models.AudienceProperty:
		if notice.TargetPropertyID == nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"targetProperty is required when audience type is 'property'", ctx)
			return false
		}
		result := authz.PropertyScope(storage.DB, actor).
			Where("properties.id = ?", *notice.TargetPropertyID).
			Limit(1).Find(&models.Property{})
		if result.Error != nil || result.RowsAffected == 0 {
			utils.CreateNotFound(ctx)
			return false
		}
	case models.AudienceUnit:
		if notice.TargetUnitID == nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"targetUnit is required when audience type is 'unit'", ctx)
			return false
		}
		result := authz.UnitScope(storage.DB, actor).
			Where("units.id = ?", *notice.TargetUnitID).
			Limit(1).Find(&models.Unit{})
		if result.Error != nil || result.RowsAffected == 0 {
			utils.CreateNotFound(ctx)
			return false
		}
	case models.AudienceIndividual:
		if notice.TargetUserID == nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"targetUser is required when audience type is 'individual'", ctx)
			return false
		}
		result := storage.DB.Where("id = ?", *notice.TargetUserID).
			Limit(1).Find(&models.User{})
		if result.Error != nil || result.RowsAffected == 0 {
			utils.CreateNotFound(ctx)
			return false
		}
	}
	return true
}

// ListNotices returns the actor's visible notices ordered the way feeds
// expect: highest priority first, then most recent.
func ListNotices(ctx iris.Context) {
	actor := utils.Actor(ctx)

	var notices []models.Notice
	if err := authz.NoticeScope(storage.DB, actor, time.Now()).
		Preload("CreatedBy").
		Order(priorityOrder + ", notices.publish_date DESC").
		Find(&notices).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(notices)
}

const priorityOrder = `CASE notices.priority
	WHEN 'urgent' THEN 0
	WHEN 'high' THEN 1
	WHEN 'normal' THEN 2
	ELSE 3 END`

// GetNotice retrieves one notice. A tenant's first retrieval lazily creates
// the (notice, user) read-status row in the viewed-unread state; viewing
// never marks a notice read.
func GetNotice(ctx iris.Context) {
	actor := utils.Actor(ctx)
	notice := findNoticeInScope(ctx, actor)
	if notice == nil {
		return
	}

	resolver := services.NewAudienceResolver(storage.DB)

	if actor.IsTenant() {
		status := models.NoticeReadStatus{NoticeID: notice.ID, UserID: actor.ID}
		if err := storage.DB.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&status).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	response := iris.Map{"notice": notice}

	// Creators and managers see the derived recipient count
	if !actor.IsTenant() {
		count, err := resolver.RecipientCount(notice)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		response["recipientCount"] = count
	} else {
		var status models.NoticeReadStatus
		result := storage.DB.
			Where("notice_id = ? AND user_id = ?", notice.ID, actor.ID).
			Limit(1).Find(&status)
		if result.Error == nil && result.RowsAffected > 0 {
			response["isRead"] = status.IsRead
			response["readAt"] = status.ReadAt
		}
	}

	ctx.JSON(response)
}

func UpdateNotice(ctx iris.Context) {
	actor := utils.Actor(ctx)
	notice := findNoticeInScope(ctx, actor)
	if notice == nil {
		return
	}

	if actor.IsTenant() || !canManageNotice(actor, notice) {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateNoticeInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.ExpiryDate != nil && !input.ExpiryDate.After(time.Now()) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Expiry date must be in the future", ctx)
		return
	}

	before := *notice
	notice.Title = input.Title
	notice.Message = input.Message
	if input.Priority != "" {
		notice.Priority = input.Priority
	}
	notice.RequiresAcknowledgment = input.RequiresAcknowledgment
	if input.IsPublished != nil {
		notice.IsPublished = *input.IsPublished
	}
	if input.ExpiryDate != nil {
		notice.ExpiryDate = input.ExpiryDate
	}

	if err := storage.DB.Model(notice).
		Select("title", "message", "priority", "requires_acknowledgment", "is_published", "expiry_date").
		Updates(notice).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "notice.update", "notice", notice.ID, before, notice)
	ctx.StatusCode(iris.StatusNoContent)
}

func DeleteNotice(ctx iris.Context) {
	actor := utils.Actor(ctx)
	notice := findNoticeInScope(ctx, actor)
	if notice == nil {
		return
	}

	if actor.IsTenant() || !canManageNotice(actor, notice) {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Delete(&models.Notice{}, notice.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "notice.delete", "notice", notice.ID, notice, nil)
	ctx.StatusCode(iris.StatusNoContent)
}

// MarkNoticeAsRead is the explicit acknowledgment action. Only tenants in
// the recipient set can acknowledge; acknowledging twice leaves the first
// ReadAt untouched.
func MarkNoticeAsRead(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if !actor.IsTenant() {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"Only tenants can mark notices as read", ctx)
		return
	}

	notice := findNoticeInScope(ctx, actor)
	if notice == nil {
		return
	}

	var status models.NoticeReadStatus
	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		status = models.NoticeReadStatus{NoticeID: notice.ID, UserID: actor.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&status).Error; err != nil {
			return err
		}
		if err := tx.Where("notice_id = ? AND user_id = ?", notice.ID, actor.ID).
			First(&status).Error; err != nil {
			return err
		}
		return status.MarkAsRead(tx)
	})
	if txErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"message": "Notice marked as read",
		"readAt":  status.ReadAt,
	})
}

// NoticeFeed is the tenant's personalized feed: unread first, then by
// priority and recency. Supports priority and unread_only filters.
func NoticeFeed(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if !actor.IsTenant() {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"This endpoint is for tenants only", ctx)
		return
	}

	query := authz.NoticeScope(storage.DB, actor, time.Now()).
		Joins(`LEFT JOIN notice_read_statuses nrs
			ON nrs.notice_id = notices.id AND nrs.user_id = ? AND nrs.deleted_at IS NULL`, actor.ID).
		Select("notices.*, COALESCE(nrs.is_read, false) AS feed_is_read").
		Preload("CreatedBy")

	if priority := ctx.URLParam("priority"); priority != "" {
		query = query.Where("notices.priority = ?", priority)
	}
	if ctx.URLParamDefault("unread_only", "false") == "true" {
		query = query.Where("COALESCE(nrs.is_read, ?) = ?", false, false)
	}

	var notices []models.Notice
	if err := query.
		Order("feed_is_read, " + priorityOrder + ", notices.publish_date DESC").
		Find(&notices).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(notices)
}

// NoticeStats summarizes notices for the actor: inbox stats for tenants,
// authorship stats for landlords and caretakers.
func NoticeStats(ctx iris.Context) {
	actor := utils.Actor(ctx)
	now := time.Now()

	if actor.IsTenant() {
		scope := func() *gorm.DB { return authz.NoticeScope(storage.DB, actor, now) }

		var total, urgent, read int64
		if err := scope().Count(&total).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		scope().Where("notices.priority = ?", models.PriorityUrgent).Count(&urgent)
		scope().
			Joins("JOIN notice_read_statuses nrs ON nrs.notice_id = notices.id AND nrs.user_id = ?", actor.ID).
			Where("nrs.is_read = ?", true).
			Count(&read)

		var ackPending int64
		scope().
			Where("notices.requires_acknowledgment = ?", true).
			Where(`notices.id NOT IN (
				SELECT notice_id FROM notice_read_statuses WHERE user_id = ? AND is_read = ?)`,
				actor.ID, true).
			Count(&ackPending)

		var recent []models.Notice
		scope().Order("notices.publish_date DESC").Limit(5).Find(&recent)

		ctx.JSON(iris.Map{
			"totalNotices":          total,
			"unreadNotices":         total - read,
			"urgentNotices":         urgent,
			"acknowledgmentPending": ackPending,
			"recentNotices":         recent,
		})
		return
	}

	if actor.IsLandlord() || actor.IsCaretaker() {
		created := func() *gorm.DB {
			return storage.DB.Model(&models.Notice{}).Where("created_by_id = ?", actor.ID)
		}

		var total, published, drafts, urgent, requiringAck int64
		created().Count(&total)
		created().Where("is_published = ?", true).Count(&published)
		created().Where("is_published = ?", false).Count(&drafts)
		created().Where("priority = ?", models.PriorityUrgent).Count(&urgent)
		created().Where("requires_acknowledgment = ?", true).Count(&requiringAck)

		ctx.JSON(iris.Map{
			"totalCreated":            total,
			"published":               published,
			"drafts":                  drafts,
			"urgent":                  urgent,
			"requiringAcknowledgment": requiringAck,
		})
		return
	}

	utils.CreateForbidden(ctx)
}

// NoticeReadReport shows a creator how far their notice has travelled:
// recipients, reads, and the read percentage.
func NoticeReadReport(ctx iris.Context) {
	actor := utils.Actor(ctx)
	notice := findNoticeInScope(ctx, actor)
	if notice == nil {
		return
	}

	if notice.CreatedByID != actor.ID {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"Only notice creators can view read reports", ctx)
		return
	}

	resolver := services.NewAudienceResolver(storage.DB)
	totalRecipients, err := resolver.RecipientCount(notice)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var readCount int64
	storage.DB.Model(&models.NoticeReadStatus{}).
		Where("notice_id = ? AND is_read = ?", notice.ID, true).
		Count(&readCount)

	readPercentage := 0.0
	if totalRecipients > 0 {
		readPercentage = float64(readCount) / float64(totalRecipients) * 100
	}

	ctx.JSON(iris.Map{
		"noticeID":               notice.ID,
		"noticeTitle":            notice.Title,
		"priority":               notice.Priority,
		"totalRecipients":        totalRecipients,
		"readCount":              readCount,
		"unreadCount":            int64(totalRecipients) - readCount,
		"readPercentage":         readPercentage,
		"requiresAcknowledgment": notice.RequiresAcknowledgment,
		"publishDate":            notice.PublishDate,
	})
}

// canManageNotice applies the object-level write predicate for landlords
// and caretakers.
func canManageNotice(actor *models.User, notice *models.Notice) bool {
	return authz.CanAccessNotice(actor, notice, nil, authz.Write)
}

// findNoticeInScope loads a notice through the actor's scope with targets
// preloaded deep enough for the object predicates.
func findNoticeInScope(ctx iris.Context, actor *models.User) *models.Notice {
	id := ctx.Params().Get("id")

	var notice models.Notice
	result := authz.NoticeScope(storage.DB, actor, time.Now()).
		Preload("CreatedBy").
		Preload("TargetProperty").
		Preload("TargetProperty.Caretakers").
		Preload("TargetUnit").
		Preload("TargetUnit.Property").
		Preload("TargetUnit.Property.Caretakers").
		Preload("TargetUser").
		Preload("TargetUser.AssignedUnit").
		Preload("TargetUser.AssignedUnit.Property").
		Preload("CustomRecipients").
		Where("notices.id = ?", id).
		Limit(1).
		Find(&notice)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &notice
}

type CreateNoticeInput struct {
	Title                  string     `json:"title" validate:"required,max=200"`
	Message                string     `json:"message" validate:"required"`
	Priority               string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	AudienceType           string     `json:"audienceType" validate:"required,oneof=all_tenants property unit individual caretakers custom"`
	TargetPropertyID       *uint      `json:"targetPropertyID"`
	TargetUnitID           *uint      `json:"targetUnitID"`
	TargetUserID           *uint      `json:"targetUserID"`
	CustomRecipientIDs     []uint     `json:"customRecipientIDs"`
	IsPublished            *bool      `json:"isPublished"`
	PublishDate            *time.Time `json:"publishDate"`
	ExpiryDate             *time.Time `json:"expiryDate"`
	RequiresAcknowledgment bool       `json:"requiresAcknowledgment"`
}

type UpdateNoticeInput struct {
	Title                  string     `json:"title" validate:"required,max=200"`
	Message                string     `json:"message" validate:"required"`
	Priority               string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	RequiresAcknowledgment bool       `json:"requiresAcknowledgment"`
	IsPublished            *bool      `json:"isPublished"`
	ExpiryDate             *time.Time `json:"expiryDate"`
}
