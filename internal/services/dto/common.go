package dto

import (
	"encoding/json"
	"strings"
)

// Pagination - skip/limit, как в выдаче списков
type Pagination struct {
	Skip  int `form:"skip" validate:"min=0"`
	Limit int `form:"limit" validate:"min=0,max=100"`
}

// KeywordList принимает как JSON-массив, так и строку через запятую
type KeywordList []string

func (k *KeywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = NormalizeKeywords(list)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*k = NormalizeKeywords([]string{raw})
	return nil
}

// NormalizeKeywords разбивает значения по запятым, обрезает пробелы и убирает пустые
func NormalizeKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}
