package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = `{"id":42,"first_name":"Ann","last_name":"Lee","username":"ann"}`

func initData(user string, authDate time.Time) string {
	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	if user != "" {
		v.Set("user", user)
	}
	v.Set("hash", "c0ffee")
	return v.Encode()
}

func TestExtractTelegramData(t *testing.T) {
	authDate := time.Unix(1700000000, 0)

	tests := []struct {
		name          string
		initData      string
		expected      *TelegramUserData
		expectedError error
	}{
		{
			name:     "Full user",
			initData: initData(testUser, authDate),
			expected: &TelegramUserData{ID: 42, Username: "ann", FullName: "Ann Lee", AuthDate: authDate},
		},
		{
			name:     "No last name",
			initData: initData(`{"id":7,"first_name":"Bob"}`, authDate),
			expected: &TelegramUserData{ID: 7, FullName: "Bob", AuthDate: authDate},
		},
		{
			name:          "Missing user",
			initData:      initData("", authDate),
			expectedError: ErrMissingUser,
		},
		{
			name:          "User without id",
			initData:      initData(`{"first_name":"Bob"}`, authDate),
			expectedError: ErrMissingUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ExtractTelegramData(tt.initData)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)
		})
	}

	_, err := ExtractTelegramData("user=%7B%7D")
	assert.Error(t, err, "auth_date is required")
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	valid := initData(testUser, time.Now())

	tests := []struct {
		name           string
		debug          bool
		header         string
		expectedStatus int
	}{
		{name: "Debug mode skips the signature", debug: true, header: "Telegram " + valid, expectedStatus: http.StatusOK},
		{name: "Bad signature", header: "Telegram " + valid, expectedStatus: http.StatusUnauthorized},
		{name: "Missing header", debug: true, expectedStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", debug: true, header: "Bearer " + valid, expectedStatus: http.StatusUnauthorized},
		{name: "Debug mode without user", debug: true, header: "Telegram " + initData("", time.Now()), expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *TelegramUserData

			router := gin.New()
			router.Use(NewTelegramAuth("123:token", tt.debug).TelegramAuthMiddleware())
			router.GET("/me", func(c *gin.Context) {
				seen, _ = UserFromContext(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, int64(42), seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}
