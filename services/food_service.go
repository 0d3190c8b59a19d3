package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/howtoquitvivek/skipnomeal/logger"
	"github.com/howtoquitvivek/skipnomeal/models"
	"github.com/howtoquitvivek/skipnomeal/nutrition"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FoodService struct {
	db      *gorm.DB
	log     *logger.Logger
	hub     *RealtimeHub
	images  ImageStore
	labels  LabelDetector
	workers int
}

// Food is a validated record plus its storage metadata.
type Food struct {
	Record    nutrition.FoodRecord
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFoodService wires the food catalog. images and labels may be nil, in
// which case the photo endpoints report themselves unavailable.
func NewFoodService(db *gorm.DB, log *logger.Logger, hub *RealtimeHub, images ImageStore, labels LabelDetector, workers int) *FoodService {
	if workers < 1 {
		workers = 1
	}
	return &FoodService{db: db, log: log, hub: hub, images: images, labels: labels, workers: workers}
}

func (s *FoodService) Create(ctx context.Context, userID uint, name string, kind nutrition.QuantityKind, p nutrition.Payload) (*Food, error) {
	rec, err := nutrition.Create(uuid.NewString(), name, kind, p)
	if err != nil {
		return nil, err
	}
	item, err := itemFromRecord(userID, rec)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	s.log.Info("food created", "user_id", userID, "food_id", rec.ID(), "quantity_kind", rec.QuantityKind())
	return &Food{Record: rec, CreatedAt: item.CreatedAt, UpdatedAt: item.UpdatedAt}, nil
}

func (s *FoodService) Get(ctx context.Context, userID uint, id string) (*Food, error) {
	item, err := findFood(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return nil, err
	}
	return foodFromItem(item)
}

func (s *FoodService) List(ctx context.Context, userID uint) ([]Food, error) {
	var items []models.FoodItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return foodsFromItems(items)
}

// Search matches foods whose name contains q, ignoring case.
func (s *FoodService) Search(ctx context.Context, userID uint, q string) ([]Food, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.List(ctx, userID)
	}
	var items []models.FoodItem
	if err := s.db.WithContext(ctx).
		Where(`user_id = ? AND LOWER(name) LIKE ? ESCAPE '\'`, userID, "%"+likeEscaper.Replace(q)+"%").
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return foodsFromItems(items)
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ReplaceRepresentation swaps a food's whole representation. Every meal that
// uses the food is recomputed against the new record in the same
// transaction; if any of them stops resolving the edit is rejected.
func (s *FoodService) ReplaceRepresentation(ctx context.Context, userID uint, id string, kind nutrition.QuantityKind, p nutrition.Payload) (*Food, error) {
	var (
		out     *Food
		updated []mealTotals
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findFood(tx, userID, id)
		if err != nil {
			return err
		}
		current, err := recordFromItem(item)
		if err != nil {
			return err
		}
		next, err := nutrition.ReplaceRepresentation(current, kind, p)
		if err != nil {
			return err
		}

		meals, err := mealsUsingFood(tx, userID, id)
		if err != nil {
			return err
		}
		updated, err = recomputeMeals(ctx, tx, userID, meals, map[string]nutrition.FoodRecord{id: next}, s.workers)
		if err != nil {
			return err
		}

		raw, err := json.Marshal(next.Payload())
		if err != nil {
			return fmt.Errorf("encode representation: %w", err)
		}
		if err := tx.Model(item).Updates(map[string]any{
			"quantity_kind":  string(next.QuantityKind()),
			"representation": datatypes.JSON(raw),
		}).Error; err != nil {
			return err
		}
		out = &Food{Record: next, ImageURL: item.ImageURL, CreatedAt: item.CreatedAt, UpdatedAt: item.UpdatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("food representation replaced", "user_id", userID, "food_id", id, "quantity_kind", kind, "meals_recomputed", len(updated))
	for _, u := range updated {
		s.hub.BroadcastMealTotals(userID, u.MealID, u.Totals)
	}
	return out, nil
}

func (s *FoodService) Delete(ctx context.Context, userID uint, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findFood(tx, userID, id)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.MealEntry{}).
			Where("food_item_id = ?", id).
			Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w (%d entries)", ErrFoodInUse, refs)
		}
		return tx.Delete(item).Error
	})
}

// AttachImage uploads a photo for the food and stores its URL.
func (s *FoodService) AttachImage(ctx context.Context, userID uint, id, dataURL string) (*Food, error) {
	if s.images == nil {
		return nil, ErrImagesUnavailable
	}
	item, err := findFood(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return nil, err
	}
	url, err := s.images.UploadDataURL(ctx, "foods/"+id, dataURL)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(item).Update("image_url", url).Error; err != nil {
		return nil, err
	}
	item.ImageURL = url
	return foodFromItem(item)
}

// Recognize detects what is on a photo and returns the user's foods whose
// names match any detected label.
func (s *FoodService) Recognize(ctx context.Context, userID uint, dataURL string) ([]string, []Food, error) {
	if s.labels == nil {
		return nil, nil, ErrRecognitionUnavailable
	}
	labels, err := s.labels.DetectLabels(ctx, dataURL)
	if err != nil {
		return nil, nil, fmt.Errorf("detect labels: %w", err)
	}

	seen := make(map[string]struct{})
	matches := []Food{}
	for _, label := range labels {
		found, err := s.Search(ctx, userID, label)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range found {
			if _, ok := seen[f.Record.ID()]; ok {
				continue
			}
			seen[f.Record.ID()] = struct{}{}
			matches = append(matches, f)
		}
	}
	s.log.Debug("food recognition", "user_id", userID, "labels", labels, "matches", len(matches))
	return labels, matches, nil
}

// LoadRecords returns the user's records for ids, keyed by id. Unknown ids
// are left out; the aggregator reports them.
func (s *FoodService) LoadRecords(ctx context.Context, userID uint, ids []string) (map[string]nutrition.FoodRecord, error) {
	return loadRecords(s.db.WithContext(ctx), userID, ids)
}

func loadRecords(tx *gorm.DB, userID uint, ids []string) (map[string]nutrition.FoodRecord, error) {
	out := make(map[string]nutrition.FoodRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.FoodItem
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		rec, err := recordFromItem(&items[i])
		if err != nil {
			return nil, err
		}
		out[rec.ID()] = rec
	}
	return out, nil
}

func findFood(tx *gorm.DB, userID uint, id string) (*models.FoodItem, error) {
	var item models.FoodItem
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFoodNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func foodsFromItems(items []models.FoodItem) ([]Food, error) {
	out := make([]Food, 0, len(items))
	for i := range items {
		f, err := foodFromItem(&items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}
