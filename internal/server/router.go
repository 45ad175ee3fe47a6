package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"flashcards/internal/auth"
	apperrors "flashcards/internal/errors"
	"flashcards/internal/models"
	"flashcards/internal/sentry"
	"flashcards/internal/storage"
	"flashcards/pkg/protocol"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const userIDKey = "user_id"

// API serves the flashcards REST endpoints.
type API struct {
	Store  storage.Store
	Tokens *auth.TokenIssuer
	// Prefix is the mount point of every route, e.g. "/api".
	Prefix string
}

func NewAPI(store storage.Store, tokens *auth.TokenIssuer, prefix string) *API {
	return &API{Store: store, Tokens: tokens, Prefix: strings.TrimRight(prefix, "/")}
}

func (a *API) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), sentry.Middleware())

	g := r.Group(a.Prefix)
	g.POST("/auth/register", a.register)
	g.POST("/auth/login", a.login)

	authed := g.Group("", a.requireAuth)
	authed.GET("/decks", a.listDecks)
	authed.POST("/decks", a.createDeck)
	authed.GET("/decks/:deckId", a.getDeck)
	authed.PATCH("/decks/:deckId", a.updateDeck)
	authed.DELETE("/decks/:deckId", a.deleteDeck)

	authed.GET("/decks/:deckId/cards", a.listCards)
	authed.POST("/decks/:deckId/cards", a.createCard)
	authed.GET("/decks/:deckId/cards/:cardId", a.getCard)
	authed.PATCH("/decks/:deckId/cards/:cardId", a.updateCard)
	authed.DELETE("/decks/:deckId/cards/:cardId", a.deleteCard)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, protocol.ErrorResponse{Message: "Not found"})
	})
	return r
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller's user id in the context.
func (a *API) requireAuth(c *gin.Context) {
	data, err := a.Tokens.Parse(auth.BearerToken(c.Request))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, protocol.ErrorResponse{Message: "Unauthorized"})
		return
	}
	// A token may outlive its user.
	if _, err := a.Store.GetUserByID(data.UserID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			a.fail(c, err)
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, protocol.ErrorResponse{Message: "Unauthorized"})
		return
	}
	c.Set(userIDKey, data.UserID)
	c.Next()
}

// --- Auth ---

func (a *API) register(c *gin.Context) {
	var req protocol.RegisterRequest
	if !bind(c, &req) {
		return
	}
	user, err := a.Store.CreateUser(strings.TrimSpace(req.Username), req.Email, req.Password)
	switch {
	case errors.Is(err, storage.ErrEmailTaken):
		c.JSON(http.StatusConflict, protocol.ErrorResponse{
			Message: "Email already registered",
			Errors:  map[string]string{"email": "Email already registered"},
		})
		return
	case errors.Is(err, storage.ErrUsernameTaken):
		c.JSON(http.StatusConflict, protocol.ErrorResponse{
			Message: "Username already taken",
			Errors:  map[string]string{"username": "Username already taken"},
		})
		return
	case err != nil:
		a.fail(c, err)
		return
	}
	a.respondToken(c, http.StatusCreated, user.ID)
}

func (a *API) login(c *gin.Context) {
	var req protocol.LoginRequest
	if !bind(c, &req) {
		return
	}
	user, err := a.Store.Authenticate(req.Email, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.respondToken(c, http.StatusOK, user.ID)
}

func (a *API) respondToken(c *gin.Context, status int, userID string) {
	token, err := a.Tokens.Issue(userID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(status, protocol.AuthResponse{AccessToken: token})
}

// --- Decks ---

func (a *API) listDecks(c *gin.Context) {
	decks, err := a.Store.ListDecks(c.GetString(userIDKey))
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]protocol.Deck, len(decks))
	for i := range decks {
		out[i] = deckJSON(&decks[i])
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) getDeck(c *gin.Context) {
	deck, err := a.Store.GetDeck(c.GetString(userIDKey), c.Param("deckId"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deckJSON(deck))
}

func (a *API) createDeck(c *gin.Context) {
	var req protocol.CreateDeckRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		fieldError(c, "name", "Name is required")
		return
	}
	deck := &models.Deck{Name: req.Name, Description: req.Description, UserID: c.GetString(userIDKey)}
	if err := a.Store.CreateDeck(deck); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, deckJSON(deck))
}

func (a *API) updateDeck(c *gin.Context) {
	var req protocol.UpdateDeckRequest
	if !bind(c, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		fieldError(c, "name", "Name is required")
		return
	}
	deck, err := a.Store.UpdateDeck(c.GetString(userIDKey), c.Param("deckId"), storage.DeckPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deckJSON(deck))
}

func (a *API) deleteDeck(c *gin.Context) {
	if err := a.Store.DeleteDeck(c.GetString(userIDKey), c.Param("deckId")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Cards ---

func (a *API) listCards(c *gin.Context) {
	cards, err := a.Store.ListCards(c.GetString(userIDKey), c.Param("deckId"))
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]protocol.Card, len(cards))
	for i := range cards {
		out[i] = cardJSON(&cards[i])
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) getCard(c *gin.Context) {
	card, err := a.Store.GetCard(c.GetString(userIDKey), c.Param("deckId"), c.Param("cardId"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cardJSON(card))
}

func (a *API) createCard(c *gin.Context) {
	var req protocol.CreateCardRequest
	if !bind(c, &req) {
		return
	}
	card := &models.Card{Front: req.Front, Back: req.Back, DeckID: c.Param("deckId")}
	if err := a.Store.CreateCard(c.GetString(userIDKey), card); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cardJSON(card))
}

func (a *API) updateCard(c *gin.Context) {
	var req protocol.UpdateCardRequest
	if !bind(c, &req) {
		return
	}
	if req.Front != nil && strings.TrimSpace(*req.Front) == "" {
		fieldError(c, "front", "Front is required")
		return
	}
	if req.Back != nil && strings.TrimSpace(*req.Back) == "" {
		fieldError(c, "back", "Back is required")
		return
	}
	card, err := a.Store.UpdateCard(c.GetString(userIDKey), c.Param("deckId"), c.Param("cardId"), storage.CardPatch{
		Front: req.Front,
		Back:  req.Back,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cardJSON(card))
}

func (a *API) deleteCard(c *gin.Context) {
	if err := a.Store.DeleteCard(c.GetString(userIDKey), c.Param("deckId"), c.Param("cardId")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Helpers ---

// fail maps store errors to status codes. Unexpected errors go to Sentry.
func (a *API) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, protocol.ErrorResponse{Message: "Not found"})
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, protocol.ErrorResponse{Message: "Invalid credentials"})
	case errors.Is(err, apperrors.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, protocol.ErrorResponse{Message: "Unauthorized"})
	case errors.Is(err, apperrors.ErrDuplicateKey):
		c.AbortWithStatusJSON(http.StatusConflict, protocol.ErrorResponse{Message: "Already exists"})
	default:
		sentry.CaptureErrorWithContext(c, err, "request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, protocol.ErrorResponse{Message: "Internal server error"})
	}
}

// bind decodes the JSON body into dst and writes a 400 on failure.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, protocol.ErrorResponse{Message: "Invalid request body"})
		return false
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = fieldMessage(fe)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, protocol.ErrorResponse{Message: "Validation failed", Errors: fields})
	return false
}

func fieldError(c *gin.Context, field, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, protocol.ErrorResponse{
		Message: "Validation failed",
		Errors:  map[string]string{field: msg},
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}

func jsonName(field string) string {
	r := []rune(field)
	if len(r) > 0 {
		r[0] = unicode.ToLower(r[0])
	}
	return string(r)
}

func deckJSON(d *models.Deck) protocol.Deck {
	count := d.CardCount
	return protocol.Deck{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		UserID:      d.UserID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		CardCount:   &count,
	}
}

func cardJSON(c *models.Card) protocol.Card {
	return protocol.Card{
		ID:        c.ID,
		Front:     c.Front,
		Back:      c.Back,
		DeckID:    c.DeckID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
