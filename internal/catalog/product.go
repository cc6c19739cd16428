package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Product is a catalog record. Field order of the JSON form is fixed so the
// backing file diffs cleanly between rewrites.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Thumbnail   string
	Code        string
	Stock       int64
}

// ProductInput holds the caller-authored fields of a new product.
type ProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Thumbnail   string
	Code        string
	Stock       int64
}

func (in ProductInput) product(id string) Product {
	return Product{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Thumbnail:   in.Thumbnail,
		Code:        in.Code,
		Stock:       in.Stock,
	}
}

// Patch is a partial update. Nil fields are left untouched. There is no ID
// field: identity is never writable through an update.
type Patch struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Thumbnail   *string
	Code        *string
	Stock       *int64
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil &&
		p.Thumbnail == nil && p.Code == nil && p.Stock == nil
}

func (p Patch) apply(dst *Product) {
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Thumbnail != nil {
		dst.Thumbnail = *p.Thumbnail
	}
	if p.Code != nil {
		dst.Code = *p.Code
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
}

const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldThumbnail   = "thumbnail"
	fieldCode        = "code"
	fieldStock       = "stock"
)

// Encode writes p as a JSON object. Price is written as a bare number.
func (p Product) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field(fieldTitle, func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field(fieldDescription, func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field(fieldPrice, func(e *jx.Encoder) { e.Raw([]byte(p.Price.String())) })
		e.Field(fieldThumbnail, func(e *jx.Encoder) { e.Str(p.Thumbnail) })
		e.Field(fieldCode, func(e *jx.Encoder) { e.Str(p.Code) })
		e.Field(fieldStock, func(e *jx.Encoder) { e.Int64(p.Stock) })
		e.Field(fieldID, func(e *jx.Encoder) { e.Str(p.ID) })
	})
}

// Decode reads a product object. Unknown keys are skipped and null strings
// decode as empty.
func (p *Product) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case fieldID:
			p.ID, err = decodeString(d)
		case fieldTitle:
			p.Title, err = decodeString(d)
		case fieldDescription:
			p.Description, err = decodeString(d)
		case fieldPrice:
			p.Price, err = decodePrice(d)
		case fieldThumbnail:
			p.Thumbnail, err = decodeString(d)
		case fieldCode:
			p.Code, err = decodeString(d)
		case fieldStock:
			p.Stock, err = d.Int64()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

func (p Product) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	p.Encode(&e)
	return e.Bytes(), nil
}

func (p *Product) UnmarshalJSON(data []byte) error {
	return p.Decode(jx.DecodeBytes(data))
}

func decodeString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodePrice accepts a JSON number or a numeric string.
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s", tt)
	}
}

func encodeProducts(products []Product) []byte {
	var e jx.Encoder
	e.SetIdent(2)
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			p.Encode(e)
		}
	})
	return append(e.Bytes(), '\n')
}

// decodeProducts reads the whole-catalog document. Anything after the array,
// other than whitespace, makes the document malformed.
func decodeProducts(data []byte) ([]Product, error) {
	if err := jx.DecodeBytes(data).Validate(); err != nil {
		return nil, errors.Wrap(err, "validate")
	}

	out := make([]Product, 0, 16)
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}
