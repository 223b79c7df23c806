package search

// DefaultIndex - индекс объявлений по умолчанию
const DefaultIndex = "apartments"

// indexMapping - схема индекса; поля *.suggest используются completion-подсказками
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":               {"type": "keyword"},
      "renter_id":        {"type": "keyword"},
      "title": {
        "type": "text",
        "fields": {"suggest": {"type": "completion"}}
      },
      "description":      {"type": "text"},
      "location": {
        "type": "keyword",
        "fields": {"suggest": {"type": "completion"}}
      },
      "apartment_type":   {"type": "keyword"},
      "rent_per_week":    {"type": "integer"},
      "start_date":       {"type": "date"},
      "duration_len":     {"type": "integer"},
      "place_accept":     {"type": "keyword"},
      "furnishing_type":  {"type": "keyword"},
      "is_bathroom_solo": {"type": "boolean"},
      "parking_type":     {"type": "keyword"},
      "keywords": {
        "type": "keyword",
        "fields": {"suggest": {"type": "completion"}}
      },
      "images":           {"type": "keyword", "index": false},
      "status":           {"type": "keyword"},
      "is_active":        {"type": "boolean"},
      "view_count":       {"type": "integer"},
      "is_featured":      {"type": "boolean"},
      "featured_priority":{"type": "integer"},
      "featured_until":   {"type": "date"},
      "created_at":       {"type": "date"}
    }
  }
}`
