package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"gorm.io/gorm"
)

// Request statuses. Rejected and collected are terminal.
const (
	RequestStatusPending           = "pending"
	RequestStatusApproved          = "approved"
	RequestStatusRejected          = "rejected"
	RequestStatusPartiallyApproved = "partially approved"
	RequestStatusCollected         = "collected"
)

// Per-line statuses.
const (
	RequestItemPending   = "pending"
	RequestItemApproved  = "approved"
	RequestItemRejected  = "rejected"
	RequestItemCollected = "collected"
)

// AllowedDirectorates is the fixed organisational unit list a request must
// name.
var AllowedDirectorates = []string{
	"ACE", "Audit", "DSSRI", "HPPITI", "CS&A", "MDGIF",
	"F&A", "Procurement", "HSEC", "ERSP", "ICT",
}

func IsValidDirectorate(directorate string) bool {
	for _, d := range AllowedDirectorates {
		if d == directorate {
			return true
		}
	}
	return false
}

var requestTransitions = map[string][]string{
	RequestStatusPending:           {RequestStatusApproved, RequestStatusRejected, RequestStatusPartiallyApproved},
	RequestStatusApproved:          {RequestStatusCollected},
	RequestStatusPartiallyApproved: {RequestStatusCollected},
	RequestStatusRejected:          {},
	RequestStatusCollected:         {},
}

func CanTransition(from string, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DeriveRequestStatus folds per-line decisions into an aggregate status.
// decided is false while any line is still pending.
func DeriveRequestStatus(itemStatuses []string) (status string, decided bool) {

	if len(itemStatuses) == 0 {
		return RequestStatusPending, false
	}

	approved, rejected := 0, 0
	for _, s := range itemStatuses {
		switch s {
		case RequestItemApproved:
			approved++
		case RequestItemRejected:
			rejected++
		default:
			return RequestStatusPending, false
		}
	}

	switch {
	case rejected == 0:
		return RequestStatusApproved, true
	case approved == 0:
		return RequestStatusRejected, true
	default:
		return RequestStatusPartiallyApproved, true
	}
}

type Request struct {
	ID              int            `gorm:"primary_key" json:"id"`
	Reference       string         `gorm:"uniqueIndex;size:20;not null" json:"reference"`
	UserId          int            `gorm:"index;not null" json:"user_id"`
	User            *User          `json:"user,omitempty"`
	Location        string         `gorm:"size:50;not null" json:"location"`
	Directorate     string         `gorm:"size:50;not null" json:"directorate"`
	Department      string         `gorm:"size:100" json:"department"`
	Unit            string         `gorm:"size:100;not null" json:"unit"`
	Status          string         `gorm:"size:30;index;not null;default:pending" json:"status"`
	AdminMessage    string         `gorm:"type:text" json:"admin_message"`
	ApproverId      *int           `gorm:"index" json:"approver_id,omitempty"`
	Approver        *User          `json:"approver,omitempty"`
	CollectedAt     *time.Time     `json:"collected_at,omitempty"`
	DeletedByUserId *int           `json:"deleted_by_user_id,omitempty"`
	DeletionReason  string         `gorm:"size:255" json:"deletion_reason,omitempty"`
	Items           []RequestItem  `json:"items,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type RequestItem struct {
	ID                int        `gorm:"primary_key" json:"id"`
	RequestId         int        `gorm:"index;not null" json:"request_id"`
	InventoryId       int        `gorm:"index;not null" json:"inventory_id"`
	Inventory         *Inventory `json:"inventory,omitempty"`
	QuantityRequested int        `gorm:"not null" json:"quantity_requested"`
	QuantityApproved  int        `gorm:"not null;default:0" json:"quantity_approved"`
	Status            string     `gorm:"size:20;not null;default:pending" json:"status"`
}

type NewRequestItem struct {
	InventoryId int `json:"inventory_id" binding:"required"`
	Quantity    int `json:"quantity" binding:"required,gt=0"`
}

type NewRequest struct {
	Location    string           `json:"location" binding:"required"`
	Directorate string           `json:"directorate" binding:"required"`
	Department  string           `json:"department"`
	Unit        string           `json:"unit" binding:"required"`
	Items       []NewRequestItem `json:"items" binding:"required,min=1,dive"`
}

// ItemDecision records an approver's call on one request line. Approve with a
// zero quantity grants the full requested amount.
type ItemDecision struct {
	RequestItemId int    `json:"request_item_id" binding:"required"`
	Decision      string `json:"decision" binding:"required,oneof=approve reject"`
	Quantity      int    `json:"quantity"`
}

func newRequestReference() string {
	return "REQ-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateRequest opens a pending request for the caller. Stock is checked at
// creation time so obviously unfillable requests fail fast; it is checked
// again at collection, which is authoritative. Each line's approved quantity
// starts at the requested amount.
func CreateRequest(ctx context.Context, input *NewRequest) (*Request, error) {

	if !IsValidLocation(input.Location) {
		return nil, fmt.Errorf("%w: unknown location %q, expected one of %s",
			utils.ErrorValidation, input.Location, strings.Join(AllowedLocations, ", "))
	}
	if !IsValidDirectorate(input.Directorate) {
		return nil, fmt.Errorf("%w: unknown directorate %q", utils.ErrorValidation, input.Directorate)
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, fmt.Errorf("%w: unit is required", utils.ErrorValidation)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: a request needs at least one item", utils.ErrorValidation)
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorPermissionDenied
	}

	seen := make(map[int]bool, len(input.Items))
	items := make([]RequestItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: requested quantity must be positive", utils.ErrorValidation)
		}
		if seen[line.InventoryId] {
			return nil, fmt.Errorf("%w: item %d listed twice", utils.ErrorValidation, line.InventoryId)
		}
		seen[line.InventoryId] = true

		inventory, err := utils.FetchModel[Inventory](ctx, line.InventoryId)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d", utils.ErrorRecordNotFound, line.InventoryId)
		}
		if inventory.Quantity < line.Quantity {
			return nil, fmt.Errorf("%w: item %q has %d, requested %d",
				utils.ErrorInsufficientQuantity, inventory.Name, inventory.Quantity, line.Quantity)
		}

		items = append(items, RequestItem{
			InventoryId:       line.InventoryId,
			QuantityRequested: line.Quantity,
			QuantityApproved:  line.Quantity,
			Status:            RequestItemPending,
		})
	}

	request := Request{
		Reference:   newRequestReference(),
		UserId:      userId,
		Location:    input.Location,
		Directorate: input.Directorate,
		Department:  input.Department,
		Unit:        input.Unit,
		Status:      RequestStatusPending,
		Items:       items,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}
	return GetRequest(ctx, request.ID)
}

// ReviewRequest applies per-line decisions and derives the aggregate status
// once every line is decided. Only pending requests can be reviewed. The
// admin message is persisted even when lines are left undecided.
func ReviewRequest(ctx context.Context, requestId int, decisions []ItemDecision, adminMessage string) (*Request, error) {

	approverId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorPermissionDenied
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	var request Request
	if err := tx.Preload("Items").First(&request, requestId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if request.Status != RequestStatusPending {
		return nil, fmt.Errorf("%w: request %s is %s, only pending requests can be reviewed",
			utils.ErrorConflict, request.Reference, request.Status)
	}

	itemsById := make(map[int]*RequestItem, len(request.Items))
	for i := range request.Items {
		itemsById[request.Items[i].ID] = &request.Items[i]
	}

	for _, decision := range decisions {
		item, found := itemsById[decision.RequestItemId]
		if !found {
			return nil, fmt.Errorf("%w: line %d does not belong to request %s",
				utils.ErrorValidation, decision.RequestItemId, request.Reference)
		}

		switch decision.Decision {
		case "approve":
			granted := decision.Quantity
			if granted == 0 {
				granted = item.QuantityRequested
			}
			if granted < 0 || granted > item.QuantityRequested {
				return nil, fmt.Errorf("%w: approved quantity %d out of range for line %d",
					utils.ErrorValidation, granted, item.ID)
			}
			var inventory Inventory
			if err := tx.First(&inventory, item.InventoryId).Error; err != nil {
				return nil, fmt.Errorf("%w: item %d", utils.ErrorRecordNotFound, item.InventoryId)
			}
			if inventory.Quantity < granted {
				return nil, fmt.Errorf("%w: item %q has %d, cannot approve %d",
					utils.ErrorInsufficientQuantity, inventory.Name, inventory.Quantity, granted)
			}
			item.Status = RequestItemApproved
			item.QuantityApproved = granted
		case "reject":
			item.Status = RequestItemRejected
			item.QuantityApproved = 0
		default:
			return nil, fmt.Errorf("%w: unknown decision %q", utils.ErrorValidation, decision.Decision)
		}

		if err := tx.Save(item).Error; err != nil {
			return nil, err
		}
	}

	if adminMessage != "" {
		request.AdminMessage = adminMessage
	}

	statuses := make([]string, 0, len(request.Items))
	for _, item := range request.Items {
		statuses = append(statuses, item.Status)
	}
	derived, decided := DeriveRequestStatus(statuses)
	if decided {
		if !CanTransition(request.Status, derived) {
			return nil, fmt.Errorf("%w: request %s cannot move from %s to %s",
				utils.ErrorConflict, request.Reference, request.Status, derived)
		}
		request.Status = derived
		if derived == RequestStatusRejected {
			request.ApproverId = nil
		} else {
			request.ApproverId = &approverId
		}
	}
	if err := tx.Save(&request).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetRequest(ctx, requestId)
}

// MarkCollected issues the approved quantities. Stock is re-checked here and
// this check wins over the one made at approval time. Every decrement writes
// a negative issue row tied back to the request; collected lines flip to
// collected status.
func MarkCollected(ctx context.Context, requestId int, note string) (*Request, error) {

	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	var request Request
	if err := tx.Preload("Items").First(&request, requestId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if !CanTransition(request.Status, RequestStatusCollected) {
		return nil, fmt.Errorf("%w: request %s is %s, only approved requests can be collected",
			utils.ErrorConflict, request.Reference, request.Status)
	}

	now := time.Now()
	for i := range request.Items {
		item := &request.Items[i]
		if item.Status != RequestItemApproved || item.QuantityApproved <= 0 {
			continue
		}

		var inventory Inventory
		if err := tx.First(&inventory, item.InventoryId).Error; err != nil {
			return nil, fmt.Errorf("%w: item %d", utils.ErrorRecordNotFound, item.InventoryId)
		}
		if inventory.Quantity < item.QuantityApproved {
			return nil, fmt.Errorf("%w: item %q has %d, approved %d",
				utils.ErrorInsufficientQuantity, inventory.Name, inventory.Quantity, item.QuantityApproved)
		}

		inventory.Quantity -= item.QuantityApproved
		if err := tx.Save(&inventory).Error; err != nil {
			return nil, err
		}

		relatedId := request.ID
		issue := InventoryTransaction{
			InventoryId:      inventory.ID,
			TransactionType:  TransactionTypeIssue,
			Quantity:         -item.QuantityApproved,
			RelatedRequestId: &relatedId,
			Note:             fmt.Sprintf("issued for %s", request.Reference),
			CreatedByUserId:  userId,
		}
		if err := tx.Create(&issue).Error; err != nil {
			return nil, err
		}

		item.Status = RequestItemCollected
		if err := tx.Save(item).Error; err != nil {
			return nil, err
		}
	}

	request.Status = RequestStatusCollected
	request.CollectedAt = &now
	if note != "" {
		request.AdminMessage = note
	}
	if err := tx.Save(&request).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetRequest(ctx, requestId)
}

// SoftDeleteRequest hides a request. Admins may delete anything not yet
// collected; everyone else only their own pending requests. The deleting user
// and their reason stay on the row for the deleted-requests view.
func SoftDeleteRequest(ctx context.Context, requestId int, reason string) error {

	userId, _ := utils.GetUserIdFromContext(ctx)
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)

	request, err := utils.FetchModel[Request](ctx, requestId)
	if err != nil {
		return err
	}

	if isAdmin {
		if request.Status == RequestStatusCollected {
			return fmt.Errorf("%w: collected requests cannot be deleted", utils.ErrorConflict)
		}
	} else {
		if request.UserId != userId {
			return utils.ErrorPermissionDenied
		}
		if request.Status != RequestStatusPending {
			return fmt.Errorf("%w: only pending requests can be deleted", utils.ErrorConflict)
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	updates := map[string]interface{}{
		"deleted_by_user_id": userId,
		"deletion_reason":    reason,
	}
	if err := tx.Model(request).Updates(updates).Error; err != nil {
		return err
	}
	if err := tx.Delete(request).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// RestoreRequest undoes a soft delete.
func RestoreRequest(ctx context.Context, requestId int) (*Request, error) {

	db := config.GetDB()
	var request Request
	if err := db.WithContext(ctx).Unscoped().First(&request, requestId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if !request.DeletedAt.Valid {
		return nil, fmt.Errorf("%w: request %s is not deleted", utils.ErrorConflict, request.Reference)
	}

	updates := map[string]interface{}{
		"deleted_at":         nil,
		"deleted_by_user_id": nil,
		"deletion_reason":    "",
	}
	if err := db.WithContext(ctx).Unscoped().Model(&request).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetRequest(ctx, requestId)
}

// PermanentDeleteRequest hard-deletes a request and its lines, but only after
// it has been soft-deleted first.
func PermanentDeleteRequest(ctx context.Context, requestId int) error {

	db := config.GetDB()
	var request Request
	if err := db.WithContext(ctx).Unscoped().First(&request, requestId).Error; err != nil {
		return utils.ErrorRecordNotFound
	}
	if !request.DeletedAt.Valid {
		return fmt.Errorf("%w: request %s must be deleted before it can be purged", utils.ErrorConflict, request.Reference)
	}

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Where("request_id = ?", requestId).Delete(&RequestItem{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Delete(&request).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// PurgeDeletedRequests hard-deletes every soft-deleted request. Returns how
// many were removed.
func PurgeDeletedRequests(ctx context.Context) (int, error) {

	db := config.GetDB()
	var requests []Request
	if err := db.WithContext(ctx).Unscoped().Where("deleted_at IS NOT NULL").Find(&requests).Error; err != nil {
		return 0, err
	}

	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	for _, request := range requests {
		if err := tx.Where("request_id = ?", request.ID).Delete(&RequestItem{}).Error; err != nil {
			return 0, err
		}
		if err := tx.Unscoped().Delete(&request).Error; err != nil {
			return 0, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(requests), nil
}

func GetRequest(ctx context.Context, id int) (*Request, error) {
	return utils.FetchModel[Request](ctx, id, "Items", "Items.Inventory", "User", "Approver")
}

func GetRequestsForUser(ctx context.Context, userId int) ([]*Request, error) {

	db := config.GetDB()
	var requests []*Request
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Inventory").
		Where("user_id = ?", userId).
		Order("created_at desc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func GetAllRequests(ctx context.Context, status string) ([]*Request, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Inventory").
		Preload("User").
		Order("created_at desc")
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}

	var requests []*Request
	if err := dbCtx.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func GetDeletedRequests(ctx context.Context) ([]*Request, error) {

	db := config.GetDB()
	var requests []*Request
	err := db.WithContext(ctx).Unscoped().
		Preload("Items").
		Preload("User").
		Where("deleted_at IS NOT NULL").
		Order("deleted_at desc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
