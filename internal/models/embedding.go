package models

import (
	"time"
)

// TicketEmbedding stores the semantic vector for one ticket's text. The
// vector is kept as the canonical bracketed comma list so the column stays
// readable and indexable.
type TicketEmbedding struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TicketID  uint      `json:"ticketId" gorm:"not null;uniqueIndex"`
	Vector    string    `json:"vector" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TicketEmbedding) TableName() string {
	return "ticket_embeddings"
}
