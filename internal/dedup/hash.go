package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kovalyov-valentin/newspulse/internal/model"
)

// ContentHash считает отпечаток статьи: sha256 от title+link+id источника без разделителей.
// Это единственный ключ дедупликации, по смыслу статьи не сравниваются.
func ContentHash(title, link string, sourceID int64) string {
	sum := sha256.Sum256([]byte(title + link + strconv.FormatInt(sourceID, 10)))
	return hex.EncodeToString(sum[:])
}

// Key проверяет кандидата и возвращает его отпечаток.
// Пустые после обрезки пробелов title или link - это не статья.
func Key(title, link string, sourceID int64) (string, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(link) == "" {
		return "", model.ErrInvalidArticle
	}

	return ContentHash(title, link, sourceID), nil
}
