package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/salahd/internal/model"
)

//go:embed daily.json
var dailyJSON []byte

var ErrEmptySet = errors.New("content: empty set")

type Ayah struct {
	ID          string `json:"id"`
	SurahNumber int    `json:"surahNumber"`
	AyahNumber  int    `json:"ayahNumber"`
	ArabicText  string `json:"arabicText"`
	Translation string `json:"translation,omitempty"`
}

type Hadith struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	Explanation string `json:"explanation,omitempty"`
}

type Daily struct {
	Date   string
	Ayah   Ayah
	Hadith Hadith
}

type Provider struct {
	ayahs   []Ayah
	hadiths []Hadith
}

func NewProvider() (*Provider, error) {
	return Parse(dailyJSON)
}

func Parse(raw []byte) (*Provider, error) {
	var set struct {
		Ayahs   []Ayah   `json:"ayahs"`
		Hadiths []Hadith `json:"hadiths"`
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if len(set.Ayahs) == 0 || len(set.Hadiths) == 0 {
		return nil, ErrEmptySet
	}
	return &Provider{ayahs: set.Ayahs, hadiths: set.Hadiths}, nil
}

func (p *Provider) For(date string) (Daily, error) {
	day, err := model.ParseDateKey(date)
	if err != nil {
		return Daily{}, err
	}
	n := int(day.Unix() / int64(24*time.Hour/time.Second))
	if n < 0 {
		n = -n
	}
	return Daily{
		Date:   date,
		Ayah:   p.ayahs[n%len(p.ayahs)],
		Hadith: p.hadiths[n%len(p.hadiths)],
	}, nil
}

func (d Daily) Markdown() string {
	out := fmt.Sprintf("## Verse of the day\n\n> %s\n\n%s *(%d:%d)*\n\n## Hadith\n\n%s\n\n*%s*",
		d.Ayah.ArabicText, d.Ayah.Translation, d.Ayah.SurahNumber, d.Ayah.AyahNumber,
		d.Hadith.Text, d.Hadith.Source)
	if d.Hadith.Explanation != "" {
		out += "\n\n" + d.Hadith.Explanation
	}
	return out + "\n"
}
