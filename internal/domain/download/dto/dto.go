// Package dto contains request/response shapes between delivery and usecase
package dto

import "github.com/Conte777/MediaFlow/internal/domain/download/entities"

// KeyboardKind tells the delivery layer which inline keyboard to attach
type KeyboardKind int

const (
	KeyboardNone KeyboardKind = iota
	KeyboardType
	KeyboardFormats
)

// Reply is what the usecase asks the delivery layer to show the user
type Reply struct {
	Text     string
	Keyboard KeyboardKind
	Menu     []entities.MenuEntry
}
