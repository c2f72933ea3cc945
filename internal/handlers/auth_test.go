package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mzheng/parley/internal/models"
	"github.com/mzheng/parley/internal/store/sqlstore"
)

func TestSignup(t *testing.T) {
	store, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}

	handler := &AuthHandler{Store: store}

	creds := Credentials{
		Username: "testuser",
		Password: "password123",
	}
	body, _ := json.Marshal(creds)

	req, err := http.NewRequest("POST", "/signup", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Signup).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusCreated)
	}

	// Test duplicate user
	req, _ = http.NewRequest("POST", "/signup", bytes.NewBuffer(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(handler.Signup).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code for duplicate user: got %v want %v",
			status, http.StatusConflict)
	}
}

func TestSignupRejectsShortUsername(t *testing.T) {
	store, _ := sqlstore.New("sqlite3", ":memory:")
	handler := &AuthHandler{Store: store}

	body, _ := json.Marshal(Credentials{Username: "ab", Password: "password123"})
	req, _ := http.NewRequest("POST", "/signup", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Signup).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusBadRequest)
	}
}

func TestLogin(t *testing.T) {
	store, _ := sqlstore.New("sqlite3", ":memory:")
	handler := &AuthHandler{Store: store}

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(&models.User{Username: "testuser", Password: string(hashedPassword)})

	creds := Credentials{
		Username: "testuser",
		Password: "password123",
	}
	body, _ := json.Marshal(creds)

	req, err := http.NewRequest("POST", "/login", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Login).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	// Check cookies
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Error("Expected cookies to be set")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store, _ := sqlstore.New("sqlite3", ":memory:")
	handler := &AuthHandler{Store: store}

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(&models.User{Username: "testuser", Password: string(hashedPassword)})

	body, _ := json.Marshal(Credentials{Username: "testuser", Password: "wrong"})
	req, _ := http.NewRequest("POST", "/login", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.Login).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusUnauthorized)
	}
}
