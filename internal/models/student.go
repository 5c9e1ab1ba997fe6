package models

import "encoding/json"

// Student is an account as listed in the admin student directory
type Student struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      Role            `json:"role"`
	Phone     string          `json:"phone,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

type studentWire struct {
	MongoID      FlexString      `json:"_id"`
	ID           FlexString      `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         string          `json:"role"`
	Phone        FlexString      `json:"phone"`
	CreatedAt    FlexString      `json:"createdAt"`
	CreatedAtAlt FlexString      `json:"created_at"`
	Meta         json.RawMessage `json:"meta"`
}

// UnmarshalJSON accepts "_id" or "id" and "createdAt" or "created_at"
func (s *Student) UnmarshalJSON(data []byte) error {
	var w studentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*s = Student{
		ID:        firstNonEmpty(w.MongoID.String(), w.ID.String()),
		Name:      w.Name,
		Email:     w.Email,
		Role:      Role(w.Role),
		Phone:     w.Phone.String(),
		CreatedAt: firstNonEmpty(w.CreatedAt.String(), w.CreatedAtAlt.String()),
	}
	if len(w.Meta) > 0 && string(w.Meta) != "null" {
		s.Meta = w.Meta
	}
	return nil
}

// StudentList is one page of the admin student directory
type StudentList struct {
	Items []Student `json:"items"`
	Total int       `json:"total"`
}

// UnmarshalJSON decodes {items, total}, dropping malformed entries
func (l *StudentList) UnmarshalJSON(data []byte) error {
	var w struct {
		Items json.RawMessage `json:"items"`
		Total FlexFloat       `json:"total"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	l.Items = decodeList[Student](w.Items)
	l.Total = int(w.Total)
	return nil
}
