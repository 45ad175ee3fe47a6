package storage

import (
	"errors"
	"fmt"
	"log"
	"strings"

	apperrors "flashcards/internal/errors"
	"flashcards/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Conflicts reported by CreateUser. Both match apperrors.ErrDuplicateKey.
var (
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", apperrors.ErrDuplicateKey)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", apperrors.ErrDuplicateKey)
)

// SQLiteStore implements Store on a single SQLite file through gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Deck{}, &models.Card{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDuplicate reports whether err is a unique constraint violation.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}

// --- Users ---

func (s *SQLiteStore) CreateUser(username, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, Email: email, PasswordHash: string(hash)}
	if err := s.db.Create(user).Error; err != nil {
		// Lost a race with a concurrent registration.
		if isDuplicate(err) {
			return nil, fmt.Errorf("create user: %w", apperrors.ErrDuplicateKey)
		}
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStore) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// --- Decks ---

func (s *SQLiteStore) ListDecks(userID string) ([]models.Deck, error) {
	var decks []models.Deck
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&decks).Error; err != nil {
		return nil, err
	}
	if err := s.fillCardCounts(decks); err != nil {
		return nil, err
	}
	return decks, nil
}

func (s *SQLiteStore) GetDeck(userID, deckID string) (*models.Deck, error) {
	deck, err := s.ownedDeck(s.db, userID, deckID)
	if err != nil {
		return nil, err
	}
	one := []models.Deck{*deck}
	if err := s.fillCardCounts(one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *SQLiteStore) CreateDeck(deck *models.Deck) error {
	return s.db.Create(deck).Error
}

func (s *SQLiteStore) UpdateDeck(userID, deckID string, patch DeckPatch) (*models.Deck, error) {
	deck, err := s.ownedDeck(s.db, userID, deckID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		deck.Name = *patch.Name
	}
	if patch.Description != nil {
		deck.Description = *patch.Description
	}
	if err := s.db.Save(deck).Error; err != nil {
		return nil, err
	}
	return s.GetDeck(userID, deckID)
}

// DeleteDeck removes a deck together with its cards.
func (s *SQLiteStore) DeleteDeck(userID, deckID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		deck, err := s.ownedDeck(tx, userID, deckID)
		if err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", deck.ID).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		return tx.Delete(deck).Error
	})
}

func (s *SQLiteStore) ownedDeck(db *gorm.DB, userID, deckID string) (*models.Deck, error) {
	var deck models.Deck
	if err := db.Where("id = ? AND user_id = ?", deckID, userID).First(&deck).Error; err != nil {
		return nil, notFound(err)
	}
	return &deck, nil
}

func (s *SQLiteStore) fillCardCounts(decks []models.Deck) error {
	if len(decks) == 0 {
		return nil
	}
	ids := make([]string, len(decks))
	for i, d := range decks {
		ids[i] = d.ID
	}

	var rows []struct {
		DeckID string
		Count  int
	}
	err := s.db.Model(&models.Card{}).
		Select("deck_id, COUNT(*) AS count").
		Where("deck_id IN ?", ids).
		Group("deck_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.DeckID] = r.Count
	}
	for i := range decks {
		decks[i].CardCount = counts[decks[i].ID]
	}
	return nil
}

// --- Cards ---

func (s *SQLiteStore) ListCards(userID, deckID string) ([]models.Card, error) {
	if _, err := s.ownedDeck(s.db, userID, deckID); err != nil {
		return nil, err
	}
	var cards []models.Card
	if err := s.db.Where("deck_id = ?", deckID).Order("created_at ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *SQLiteStore) GetCard(userID, deckID, cardID string) (*models.Card, error) {
	if _, err := s.ownedDeck(s.db, userID, deckID); err != nil {
		return nil, err
	}
	var card models.Card
	if err := s.db.Where("id = ? AND deck_id = ?", cardID, deckID).First(&card).Error; err != nil {
		return nil, notFound(err)
	}
	return &card, nil
}

func (s *SQLiteStore) CreateCard(userID string, card *models.Card) error {
	if _, err := s.ownedDeck(s.db, userID, card.DeckID); err != nil {
		return err
	}
	return s.db.Create(card).Error
}

func (s *SQLiteStore) UpdateCard(userID, deckID, cardID string, patch CardPatch) (*models.Card, error) {
	card, err := s.GetCard(userID, deckID, cardID)
	if err != nil {
		return nil, err
	}
	if patch.Front != nil {
		card.Front = *patch.Front
	}
	if patch.Back != nil {
		card.Back = *patch.Back
	}
	if err := s.db.Save(card).Error; err != nil {
		return nil, err
	}
	return card, nil
}

func (s *SQLiteStore) DeleteCard(userID, deckID, cardID string) error {
	card, err := s.GetCard(userID, deckID, cardID)
	if err != nil {
		return err
	}
	return s.db.Delete(card).Error
}

// Seed creates a demo user with one deck when the database has no users.
func (s *SQLiteStore) Seed() error {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding test data...")
	user, err := s.CreateUser("demo", "demo@example.com", "demo123")
	if err != nil {
		return err
	}
	deck := &models.Deck{Name: "Spanish verbs", Description: "Common -ar verbs", UserID: user.ID}
	if err := s.CreateDeck(deck); err != nil {
		return err
	}
	pairs := [][2]string{{"hablar", "to speak"}, {"trabajar", "to work"}, {"estudiar", "to study"}}
	for _, p := range pairs {
		if err := s.CreateCard(user.ID, &models.Card{Front: p[0], Back: p[1], DeckID: deck.ID}); err != nil {
			return err
		}
	}
	log.Println("Seeding complete. Log in as demo@example.com / demo123")
	return nil
}
