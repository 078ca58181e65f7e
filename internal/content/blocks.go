package content

import (
	"fmt"

	"github.com/UkralStul/sitecms/internal/domain"
)

// Block - нормализованный контент-блок: id записи плюс payload известной формы.
// Конкретный тип определяется ключом: *HomePage, *Logo или *Palette.
type Block interface {
	Key() domain.BlockKey
	// payload возвращает указатель на сохраняемую часть блока (без id).
	payload() interface{}
	setID(id uint)
}

type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Image    string `json:"image"`
	CTAText  string `json:"ctaText"`
	CTALink  string `json:"ctaLink"`
}

type Section struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Content map[string]interface{} `json:"content"`
}

type HomePagePayload struct {
	Hero     Hero      `json:"hero"`
	Sections []Section `json:"sections"`
}

// HomePage - контент главной страницы: hero-блок и список секций.
type HomePage struct {
	ID uint `json:"id"`
	HomePagePayload
}

func (b *HomePage) Key() domain.BlockKey  { return domain.BlockHomePage }
func (b *HomePage) payload() interface{} { return &b.HomePagePayload }
func (b *HomePage) setID(id uint)        { b.ID = id }

type LogoPayload struct {
	Main    string `json:"main"`
	Favicon string `json:"favicon"`
	Footer  string `json:"footer"`
}

// Logo - адреса логотипов сайта.
type Logo struct {
	ID uint `json:"id"`
	LogoPayload
}

func (b *Logo) Key() domain.BlockKey  { return domain.BlockLogo }
func (b *Logo) payload() interface{} { return &b.LogoPayload }
func (b *Logo) setID(id uint)        { b.ID = id }

type PalettePayload struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Palette - цветовая палитра сайта (ключ "color").
type Palette struct {
	ID uint `json:"id"`
	PalettePayload
}

func (b *Palette) Key() domain.BlockKey  { return domain.BlockColor }
func (b *Palette) payload() interface{} { return &b.PalettePayload }
func (b *Palette) setID(id uint)        { b.ID = id }

var registry = map[domain.BlockKey]func() Block{
	domain.BlockHomePage: func() Block {
		return &HomePage{HomePagePayload: HomePagePayload{Sections: []Section{}}}
	},
	domain.BlockLogo:  func() Block { return &Logo{} },
	domain.BlockColor: func() Block { return &Palette{} },
}

// Default возвращает новый экземпляр блока со значениями по умолчанию.
// Каждый вызов отдает независимую копию. Неизвестный ключ - ошибка программиста, паника.
func Default(key domain.BlockKey) Block {
	newBlock, ok := registry[key]
	if !ok {
		panic(fmt.Sprintf("content: unknown block key %q", key))
	}
	return newBlock()
}

// DefaultPayload возвращает payload по умолчанию в виде дерева map/slice.
func DefaultPayload(key domain.BlockKey) map[string]interface{} {
	tree, err := toTree(Default(key).payload())
	if err != nil {
		// payload по умолчанию всегда сериализуем
		panic(fmt.Sprintf("content: default payload for %q: %v", key, err))
	}
	return tree
}

// IsKnown сообщает, есть ли ключ в реестре.
func IsKnown(key domain.BlockKey) bool {
	_, ok := registry[key]
	return ok
}
