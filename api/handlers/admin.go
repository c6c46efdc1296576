package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/roadwatch/roadwatch-api/config"
	"github.com/roadwatch/roadwatch-api/databases"
	"github.com/roadwatch/roadwatch-api/models"
)

// Admin handles the operator surface: login sessions and capability management
type Admin struct {
	UDB databases.UserDatabase
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token    string `json:"token"`
	Operator struct {
		ID           string   `json:"id"`
		Email        string   `json:"email"`
		Capabilities []string `json:"capabilities"`
	} `json:"operator"`
}

// AdminLoginHandler handles operator login via email/password and returns a JWT
func (h Admin) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		config.ErrorStatus("email and password required", http.StatusBadRequest, w, errors.New("missing credentials"))
		return
	}

	users, err := h.UDB.Find(r.Context(), bson.M{"user.email": email})
	if err != nil || len(users) == 0 {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, errors.New("no matching operator"))
		return
	}
	operator := users[0]

	if len(operator.Details.Capabilities) == 0 {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, errors.New("not an operator"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.Details.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, errors.New("password mismatch"))
		return
	}

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		config.ErrorStatus("server misconfigured", http.StatusInternalServerError, w, errors.New("JWT_SECRET not set"))
		return
	}

	claims := jwt.MapClaims{
		"sub":          operator.ID,
		"email":        operator.Details.Email,
		"capabilities": operator.Details.Capabilities,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	resp := adminLoginResponse{Token: signed}
	resp.Operator.ID = operator.ID
	resp.Operator.Email = operator.Details.Email
	resp.Operator.Capabilities = operator.Details.Capabilities

	b, _ := json.Marshal(resp)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type capabilitiesRequest struct {
	ActorID      string   `json:"actorId"`
	Capabilities []string `json:"capabilities"`
}

// UpdateCapabilitiesHandler replaces a user's capability set; the actor
// must hold manage_users
func (h Admin) UpdateCapabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("invalid userId", http.StatusBadRequest, w, err)
		return
	}

	var req capabilitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	for _, c := range req.Capabilities {
		switch c {
		case models.CapEditReports, models.CapAssignContractors, models.CapManageUsers:
		default:
			config.ErrorStatus("unknown capability", http.StatusBadRequest, w, errors.New("capability "+c))
			return
		}
	}

	if !requireCapability(r.Context(), h.UDB, w, req.ActorID, models.CapManageUsers) {
		return
	}

	res, err := h.UDB.UpdateOne(r.Context(),
		bson.M{"_id": uID},
		bson.M{"$set": bson.M{
			"user.capabilities": req.Capabilities,
			"user.updatedAt":    time.Now(),
		}},
	)
	if err != nil {
		config.ErrorStatus("failed to update capabilities", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, errors.New("no matching user"))
		return
	}

	b, _ := json.Marshal(map[string]interface{}{"userId": userID, "capabilities": req.Capabilities})
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
