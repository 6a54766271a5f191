package cj

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"dropship-service/internal/clients"
)

// CreateOrder places a fulfilment order
func (c *Client) CreateOrder(ctx context.Context, req *clients.CreateOrderRequest) (*clients.ExternalOrder, error) {
	if req == nil || len(req.Lines) == 0 {
		return nil, fmt.Errorf("order has no lines")
	}
	body := cjCreateOrder{
		OrderNumber:          req.OrderNumber,
		ShippingZip:          req.Zip,
		ShippingCountryCode:  req.CountryCode,
		ShippingProvince:     req.Province,
		ShippingCity:         req.City,
		ShippingAddress:      req.Address1,
		ShippingAddress2:     req.Address2,
		ShippingCustomerName: req.ShippingName,
		ShippingPhone:        req.ShippingPhone,
		Remark:               req.Remark,
		FromCountryCode:      req.FromCountryCode,
		LogisticName:         req.LogisticName,
		Products:             toOrderProducts(req.Lines),
	}

	var data cjOrder
	if err := c.doRequest(ctx, http.MethodPost, "/shopping/order/createOrderV2", nil, body, &data); err != nil {
		return nil, err
	}
	if data.OrderID == "" {
		return nil, fmt.Errorf("CJ did not return an order id for %s", req.OrderNumber)
	}
	order := convertOrder(data)
	if order.OrderNumber == "" {
		order.OrderNumber = req.OrderNumber
	}
	return order, nil
}

// GetOrder fetches a supplier order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*clients.ExternalOrder, error) {
	params := url.Values{"orderId": {orderID}}

	var data cjOrder
	if err := c.doRequest(ctx, http.MethodGet, "/shopping/order/getOrderDetail", params, nil, &data); err != nil {
		return nil, err
	}
	return convertOrder(data), nil
}

// CalculateFreight returns available logistics options, cheapest first as CJ sends them
func (c *Client) CalculateFreight(ctx context.Context, req *clients.FreightRequest) ([]clients.FreightOption, error) {
	body := cjFreightRequest{
		StartCountryCode: req.StartCountryCode,
		EndCountryCode:   req.EndCountryCode,
		Zip:              req.Zip,
		Products:         toOrderProducts(req.Lines),
	}

	var rows []cjFreightOption
	if err := c.doRequest(ctx, http.MethodPost, "/logistic/freightCalculate", nil, body, &rows); err != nil {
		return nil, err
	}
	options := make([]clients.FreightOption, 0, len(rows))
	for _, r := range rows {
		options = append(options, clients.FreightOption{
			LogisticName: r.LogisticName,
			Price:        r.LogisticPrice.Decimal,
			AgingDays:    r.LogisticAging,
		})
	}
	return options, nil
}

// RegisterWebhooks points product, stock, order and logistics callbacks at callbackURL
func (c *Client) RegisterWebhooks(ctx context.Context, callbackURL string) error {
	if callbackURL == "" {
		return fmt.Errorf("callback url is required")
	}
	topic := cjWebhookTopic{Type: "ENABLE", CallbackURLs: []string{callbackURL}}
	body := cjWebhookSettings{Product: topic, Stock: topic, Order: topic, Logistics: topic}
	return c.doRequest(ctx, http.MethodPost, "/webhook/set", nil, body, nil)
}
