package uam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/api/clients/importer"
	"BesCrmSaas/internal/config"
)

// uploadAvatar puts the image into the Supabase avatars bucket over the
// storage REST API and returns the public URL plus the storage path.
func uploadAvatar(ctx context.Context, fileBytes []byte, contentType, objectPath string) (string, string, error) {
	supaURL := strings.Trim(os.Getenv("SUPABASE_URL"), "\"")
	supaServiceKey := strings.Trim(os.Getenv("SUPABASE_SERVICE_ROLE_KEY"), "\"")
	bucketName := strings.Trim(os.Getenv("SUPABASE_AVATAR_BUCKET"), "\"")
	if bucketName == "" {
		bucketName = "avatars"
	}

	if supaURL == "" || supaServiceKey == "" {
		return "", "", fmt.Errorf("supabase configuration missing; set SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
	}

	base := strings.TrimRight(supaURL, "/")
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, bucketName, url.PathEscape(objectPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(fileBytes))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+supaServiceKey)
	req.Header.Set("apikey", supaServiceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "3600")
	req.Header.Set("x-upsert", "true")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("supabase upload failed: %d %s", resp.StatusCode, string(b))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, bucketName, objectPath)
	return publicURL, objectPath, nil
}

// UpdateProfile rewrites the consultant's profile fields and, when an avatar
// image is attached, stores it and records the public URL.
func UpdateProfile(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "Form verisi okunamadı.")
			return
		}

		session := auth.SessionByUserID(r.FormValue("user_id"))
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Oturum bulunamadı.")
			return
		}

		name := strings.TrimSpace(r.FormValue("name"))
		email := strings.TrimSpace(r.FormValue("email"))
		phone := strings.TrimSpace(r.FormValue("phone"))
		bio := strings.TrimSpace(r.FormValue("bio"))

		switch {
		case utf8.RuneCountInString(name) < 2:
			api.RespondWithResult(w, false, "İsim en az 2 karakter olmalı.")
			return
		case !importer.ValidEmail(email):
			api.RespondWithResult(w, false, "Geçerli bir e-posta girin.")
			return
		case utf8.RuneCountInString(phone) > 40:
			api.RespondWithResult(w, false, "Telefon alanı çok uzun.")
			return
		case utf8.RuneCountInString(bio) > 280:
			api.RespondWithResult(w, false, "Hakkımda alanı en fazla 280 karakter olabilir.")
			return
		}

		var (
			avatarURL  *string
			avatarPath *string
		)
		file, header, err := r.FormFile("avatar")
		if err == nil {
			defer file.Close()
			if header.Size > config.MaxAvatarBytes {
				api.RespondWithResult(w, false, "Profil fotoğrafı 5MB boyutunu aşamaz.")
				return
			}
			fileBytes, err := io.ReadAll(file)
			if err != nil {
				api.RespondWithResult(w, false, "Profil fotoğrafı yüklenemedi.")
				return
			}

			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
			if ext == "" {
				ext = "jpg"
			}
			contentType := header.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "image/jpeg"
			}
			objectPath := session.UserID + "/" + uuid.New().String() + "." + ext

			publicURL, storagePath, err := uploadAvatar(ctx, fileBytes, contentType, objectPath)
			if err != nil {
				api.LogError("avatar upload failed: %v", err)
				api.RespondWithResult(w, false, "Profil fotoğrafı yüklenemedi.")
				return
			}
			avatarURL = &publicURL
			avatarPath = &storagePath
		}

		sets := []string{"name = $1", "email = $2", "phone = $3", "bio = $4"}
		values := []interface{}{name, email, optionalValue(phone), optionalValue(bio)}
		next := 5
		if avatarURL != nil {
			sets = append(sets, fmt.Sprintf("photo_url = $%d", next))
			values = append(values, *avatarURL)
			next++
			sets = append(sets, fmt.Sprintf("photo_path = $%d", next))
			values = append(values, *avatarPath)
			next++
		}

		query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), next)
		values = append(values, session.UserID)

		if _, err := pgxPool.Exec(ctx, query, values...); err != nil {
			if isUniqueViolation(err) {
				api.RespondWithResult(w, false, "Bu e-posta adresi başka bir kullanıcı tarafından kullanılıyor.")
				return
			}
			api.LogError("profile update failed: %v", err)
			api.RespondWithResult(w, false, "Profil güncellenirken bir hata oluştu.")
			return
		}

		api.RespondWithResult(w, true, "Profil bilgileri güncellendi.")
	}
}

func optionalValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
