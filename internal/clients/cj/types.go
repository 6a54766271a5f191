package cj

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type envelope struct {
	Code      int             `json:"code"`
	Result    bool            `json:"result"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

type tokenData struct {
	OpenID                 interface{} `json:"openId"`
	AccessToken            string      `json:"accessToken"`
	AccessTokenExpiryDate  string      `json:"accessTokenExpiryDate"`
	RefreshToken           string      `json:"refreshToken"`
	RefreshTokenExpiryDate string      `json:"refreshTokenExpiryDate"`
}

type cjCategoryFirst struct {
	CategoryFirstID   string             `json:"categoryFirstId"`
	CategoryFirstName string             `json:"categoryFirstName"`
	CategoryFirstList []cjCategorySecond `json:"categoryFirstList"`
}

type cjCategorySecond struct {
	CategorySecondID   string       `json:"categorySecondId"`
	CategorySecondName string       `json:"categorySecondName"`
	CategorySecondList []cjCategory `json:"categorySecondList"`
}

type cjCategory struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

type cjProductPage struct {
	PageNum  int         `json:"pageNum"`
	PageSize int         `json:"pageSize"`
	Total    int         `json:"total"`
	List     []cjProduct `json:"list"`
}

type cjProduct struct {
	PID             string      `json:"pid"`
	ProductNameEn   string      `json:"productNameEn"`
	ProductSku      string      `json:"productSku"`
	ProductImage    imageList   `json:"productImage"`
	ProductImageSet []string    `json:"productImageSet"`
	CategoryID      string      `json:"categoryId"`
	CategoryName    string      `json:"categoryName"`
	SellPrice       price       `json:"sellPrice"`
	ProductWeight   price       `json:"productWeight"`
	Description     string      `json:"description"`
	UpdateTime      interface{} `json:"updateTime"`
	Variants        []cjVariant `json:"variants"`
}

type cjVariant struct {
	VID              string `json:"vid"`
	PID              string `json:"pid"`
	VariantNameEn    string `json:"variantNameEn"`
	VariantSku       string `json:"variantSku"`
	VariantImage     string `json:"variantImage"`
	VariantKey       string `json:"variantKey"`
	VariantSellPrice price  `json:"variantSellPrice"`
	VariantWeight    price  `json:"variantWeight"`
}

type cjStock struct {
	VID         string `json:"vid"`
	AreaID      string `json:"areaId"`
	AreaEn      string `json:"areaEn"`
	CountryCode string `json:"countryCode"`
	StorageNum  int    `json:"storageNum"`
}

type cjOrderProduct struct {
	VID      string `json:"vid"`
	Quantity int    `json:"quantity"`
}

type cjCreateOrder struct {
	OrderNumber          string           `json:"orderNumber"`
	ShippingZip          string           `json:"shippingZip"`
	ShippingCountryCode  string           `json:"shippingCountryCode"`
	ShippingProvince     string           `json:"shippingProvince"`
	ShippingCity         string           `json:"shippingCity"`
	ShippingAddress      string           `json:"shippingAddress"`
	ShippingAddress2     string           `json:"shippingAddress2,omitempty"`
	ShippingCustomerName string           `json:"shippingCustomerName"`
	ShippingPhone        string           `json:"shippingPhone"`
	Remark               string           `json:"remark,omitempty"`
	FromCountryCode      string           `json:"fromCountryCode,omitempty"`
	LogisticName         string           `json:"logisticName"`
	Products             []cjOrderProduct `json:"products"`
}

type cjOrder struct {
	OrderID      string `json:"orderId"`
	OrderNum     string `json:"orderNum"`
	OrderNumber  string `json:"orderNumber"`
	OrderStatus  string `json:"orderStatus"`
	TrackNumber  string `json:"trackNumber"`
	LogisticName string `json:"logisticName"`
	OrderAmount  price  `json:"orderAmount"`
}

type cjFreightRequest struct {
	StartCountryCode string           `json:"startCountryCode"`
	EndCountryCode   string           `json:"endCountryCode"`
	Zip              string           `json:"zip,omitempty"`
	Products         []cjOrderProduct `json:"products"`
}

type cjFreightOption struct {
	LogisticName  string `json:"logisticName"`
	LogisticPrice price  `json:"logisticPrice"`
	LogisticAging string `json:"logisticAging"`
}

type cjWebhookTopic struct {
	Type         string   `json:"type"`
	CallbackURLs []string `json:"callbackUrls"`
}

type cjWebhookSettings struct {
	Product   cjWebhookTopic `json:"product"`
	Stock     cjWebhookTopic `json:"stock"`
	Order     cjWebhookTopic `json:"order"`
	Logistics cjWebhookTopic `json:"logistics"`
}

// price accepts CJ money values sent as numbers, numeric strings or
// ranges such as "2.19-3.45" (lower bound is kept).
type price struct {
	decimal.Decimal
}

func (p *price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if i := strings.Index(raw, "-"); i > 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		// unparseable prices are treated as unknown rather than failing the page
		return nil
	}
	p.Decimal = d
	return nil
}

// imageList accepts a single URL, a JSON-encoded array string or an array
type imageList []string

func (l *imageList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*l = list
			return nil
		}
	}
	if s != "" {
		*l = strings.Split(s, ",")
	}
	return nil
}
