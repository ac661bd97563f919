package jnt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/types"
)

const (
	orderTypeB2C          = "1"
	goodsTypeGeneral      = "1"
	labelTypePDF          = "1"
	defaultPickupWindow   = "09:00-18:00"
	defaultCancelReason   = "Customer request"
	scanTimeLayout        = "2006-01-02 15:04:05"
	pickupDateLayout      = "2006-01-02"
	minimumShipmentWeight = 0.1
)

type wireParty struct {
	Name        string `json:"name,omitempty"`
	Mobile      string `json:"mobile,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city,omitempty"`
	Area        string `json:"area,omitempty"`
	Address     string `json:"address,omitempty"`
	PostCode    string `json:"postCode"`
	Email       string `json:"email,omitempty"`
}

func toWireParty(p types.Party) wireParty {
	phone := p.Phone
	if phone == "" {
		phone = p.Mobile
	}
	area := p.Area
	if area == "" {
		area = p.City
	}
	return wireParty{
		Name:        p.Name,
		Mobile:      p.Mobile,
		Phone:       phone,
		CountryCode: normalizeCountry(p.CountryCode),
		City:        p.City,
		Area:        area,
		Address:     p.Address,
		PostCode:    p.PostCode,
		Email:       p.Email,
	}
}

// CreateOrderRequest describes a waybill to open with the courier.
type CreateOrderRequest struct {
	OrderID        string
	ServiceType    enums.ServiceType
	Sender         types.Party
	Receiver       types.Party
	TotalQuantity  int
	WeightKg       float64
	ItemsName      string
	InsuranceValue decimal.Decimal
	CODAmount      decimal.Decimal
	Currency       string
	Remark         string
	PickupDate     time.Time
}

// CreateOrderResult carries the routing codes assigned by the courier.
type CreateOrderResult struct {
	BillCode          string `json:"billCode"`
	SortingCode       string `json:"sortingCode"`
	PackageCode       string `json:"packageCode"`
	InternationalCode string `json:"internationalCode"`
	ShortCode         string `json:"shortCode"`
}

// CreateOrder opens a waybill and returns its tracking number (bill code).
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	serviceType := req.ServiceType
	if serviceType == "" {
		serviceType = enums.ServiceTypeStandard
	}
	quantity := req.TotalQuantity
	if quantity <= 0 {
		quantity = 1
	}
	weight := req.WeightKg
	if weight < minimumShipmentWeight {
		weight = minimumShipmentWeight
	}
	pickupDate := req.PickupDate
	if pickupDate.IsZero() {
		pickupDate = c.now()
	}

	payload := struct {
		CustomerCode   string    `json:"customerCode"`
		Digest         string    `json:"digest"`
		TxLogisticID   string    `json:"txLogisticId"`
		OrderType      string    `json:"orderType"`
		ServiceType    string    `json:"serviceType"`
		Sender         wireParty `json:"sender"`
		Receiver       wireParty `json:"receiver"`
		GoodsType      string    `json:"goodsType"`
		TotalQuantity  int       `json:"totalQuantity"`
		Weight         float64   `json:"weight"`
		ItemsName      string    `json:"itemsName"`
		InsuranceValue float64   `json:"insuranceValue"`
		CODAmount      float64   `json:"codAmount"`
		Currency       string    `json:"currency"`
		Remark         string    `json:"remark"`
		PickupDate     string    `json:"pickupDate"`
	}{
		CustomerCode:   c.customerCode,
		TxLogisticID:   req.OrderID,
		OrderType:      orderTypeB2C,
		ServiceType:    string(serviceType),
		Sender:         toWireParty(req.Sender),
		Receiver:       toWireParty(req.Receiver),
		GoodsType:      goodsTypeGeneral,
		TotalQuantity:  quantity,
		Weight:         weight,
		ItemsName:      req.ItemsName,
		InsuranceValue: req.InsuranceValue.InexactFloat64(),
		CODAmount:      req.CODAmount.InexactFloat64(),
		Currency:       req.Currency,
		Remark:         req.Remark,
		PickupDate:     pickupDate.UTC().Format(pickupDateLayout),
	}

	var out CreateOrderResult
	if err := c.call(ctx, "create_order", pathCreateOrder, payload, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.BillCode) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, &RejectedError{Code: successCode, Message: "missing bill code"}, "create_order rejected")
	}
	return &out, nil
}

// TrackEvent is one scan reported by the courier.
type TrackEvent struct {
	ScanTime    string `json:"scanTime"`
	Location    string `json:"scanNetworkName"`
	Description string `json:"desc"`
	ScanType    string `json:"scanType"`
	Status      string `json:"status"`
}

// TrackResult is the courier's view of a waybill, newest scan first.
type TrackResult struct {
	BillCode   string       `json:"billCode"`
	LastStatus string       `json:"lastStatus"`
	Details    []TrackEvent `json:"details"`
}

// Track fetches the scan history for a tracking number.
func (c *Client) Track(ctx context.Context, billCode string) (*TrackResult, error) {
	billCode = strings.TrimSpace(billCode)
	if billCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	payload := map[string]string{
		"customerCode": c.customerCode,
		"billCode":     billCode,
	}
	var out TrackResult
	if err := c.call(ctx, "track", pathTrack, payload, &out); err != nil {
		return nil, err
	}
	if out.BillCode == "" {
		out.BillCode = billCode
	}
	return &out, nil
}

// RateRequest describes a shipping quote request.
type RateRequest struct {
	SenderCountry    string
	SenderCity       string
	SenderPostCode   string
	ReceiverCountry  string
	ReceiverCity     string
	ReceiverPostCode string
	WeightKg         float64
	ServiceType      enums.ServiceType
}

// CalculateRate asks the courier for a quote and falls back to the static
// table on any failure. It never returns an error.
func (c *Client) CalculateRate(ctx context.Context, req RateRequest) Rate {
	if c == nil {
		return FallbackRate(req.ReceiverCountry)
	}
	rate, err := c.quote(ctx, req)
	if err != nil {
		c.metrics.IncFallback("rate")
		return FallbackRate(req.ReceiverCountry)
	}
	return rate
}

func (c *Client) quote(ctx context.Context, req RateRequest) (Rate, error) {
	weight := req.WeightKg
	if weight <= 0 {
		weight = 1.0
	}
	serviceType := req.ServiceType
	if serviceType == "" {
		serviceType = enums.ServiceTypeStandard
	}
	payload := struct {
		CustomerCode string    `json:"customerCode"`
		Sender       wireParty `json:"sender"`
		Receiver     wireParty `json:"receiver"`
		Weight       float64   `json:"weight"`
		ServiceType  string    `json:"serviceType"`
	}{
		CustomerCode: c.customerCode,
		Sender:       wireParty{CountryCode: normalizeCountry(req.SenderCountry), City: req.SenderCity, PostCode: req.SenderPostCode},
		Receiver:     wireParty{CountryCode: normalizeCountry(req.ReceiverCountry), City: req.ReceiverCity, PostCode: req.ReceiverPostCode},
		Weight:       weight,
		ServiceType:  string(serviceType),
	}

	var out struct {
		BaseFee       decimal.NullDecimal `json:"baseFee"`
		FuelSurcharge decimal.NullDecimal `json:"fuelSurcharge"`
		AdditionalFee decimal.NullDecimal `json:"additionalFee"`
		TotalFee      decimal.NullDecimal `json:"totalFee"`
		Currency      string              `json:"currency"`
		EstimatedDays json.RawMessage     `json:"estimatedDays"`
	}
	if err := c.call(ctx, "rate", pathShippingFee, payload, &out); err != nil {
		return Rate{}, err
	}
	if !out.TotalFee.Valid {
		return Rate{}, fmt.Errorf("%w: rate response missing total fee", ErrUnavailable)
	}

	currency := out.Currency
	if currency == "" {
		currency = "AED"
	}
	days := strings.Trim(string(out.EstimatedDays), `"`)
	if days == "" || days == "null" {
		days = "2-3"
	}
	return Rate{
		BaseFee:       nullOrZero(out.BaseFee),
		FuelSurcharge: nullOrZero(out.FuelSurcharge),
		AdditionalFee: nullOrZero(out.AdditionalFee),
		TotalFee:      out.TotalFee.Decimal,
		Currency:      currency,
		EstimatedDays: days,
	}, nil
}

func nullOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// LabelResult points at the printable waybill.
type LabelResult struct {
	LabelURL    string `json:"labelUrl"`
	LabelBase64 string `json:"labelBase64"`
}

// GetLabel requests the PDF label for a tracking number.
func (c *Client) GetLabel(ctx context.Context, billCode string) (*LabelResult, error) {
	billCode = strings.TrimSpace(billCode)
	if billCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	payload := map[string]string{
		"customerCode": c.customerCode,
		"billCode":     billCode,
		"type":         labelTypePDF,
	}
	var out LabelResult
	if err := c.call(ctx, "label", pathPrintInfo, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PickupRequest asks the courier to collect parcels from an address.
type PickupRequest struct {
	Date          time.Time
	TimeWindow    string
	Address       types.Party
	TotalQuantity int
	Remark        string
}

// PickupResult identifies the scheduled pickup.
type PickupResult struct {
	PickupNo   string
	PickupDate string
	PickupTime string
}

// SchedulePickup books a courier pickup.
func (c *Client) SchedulePickup(ctx context.Context, req PickupRequest) (*PickupResult, error) {
	if req.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup date is required")
	}
	window := strings.TrimSpace(req.TimeWindow)
	if window == "" {
		window = defaultPickupWindow
	}
	quantity := req.TotalQuantity
	if quantity <= 0 {
		quantity = 1
	}
	date := req.Date.Format(pickupDateLayout)

	payload := struct {
		CustomerCode  string    `json:"customerCode"`
		PickupDate    string    `json:"pickupDate"`
		PickupTime    string    `json:"pickupTime"`
		Address       wireParty `json:"address"`
		TotalQuantity int       `json:"totalQuantity"`
		Remark        string    `json:"remark"`
	}{
		CustomerCode:  c.customerCode,
		PickupDate:    date,
		PickupTime:    window,
		Address:       toWireParty(req.Address),
		TotalQuantity: quantity,
		Remark:        req.Remark,
	}

	var out struct {
		PickupNo string `json:"pickupNo"`
	}
	if err := c.call(ctx, "pickup", pathPickup, payload, &out); err != nil {
		return nil, err
	}
	return &PickupResult{PickupNo: out.PickupNo, PickupDate: date, PickupTime: window}, nil
}

// Cancel asks the courier to void a waybill.
func (c *Client) Cancel(ctx context.Context, billCode, reason string) error {
	billCode = strings.TrimSpace(billCode)
	if billCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultCancelReason
	}
	payload := map[string]string{
		"customerCode": c.customerCode,
		"billCode":     billCode,
		"reason":       reason,
	}
	return c.call(ctx, "cancel", pathCancel, payload, nil)
}

// WebhookPayload is the body J&T posts on every scan.
type WebhookPayload struct {
	BillCode        string `json:"billCode"`
	Status          string `json:"status"`
	ScanTime        string `json:"scanTime"`
	ScanType        string `json:"scanType"`
	Desc            string `json:"desc"`
	ScanNetworkName string `json:"scanNetworkName"`
}

// ParseWebhook decodes a verified callback body.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid jnt webhook payload")
	}
	if strings.TrimSpace(payload.BillCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billCode is required")
	}
	return &payload, nil
}

// ParseScanTime accepts the courier's local "2006-01-02 15:04:05" format and
// RFC 3339. It returns fallback when the value is empty or unparseable.
func ParseScanTime(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, scanTimeLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
