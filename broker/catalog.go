package broker

import "sort"

// Info describes a brokerage reachable through a REST API
type Info struct {
	Name        string
	DisplayName string
	BaseURL     string
	Exchanges   []string
	// OrderTypes maps the normalised order type to the code the broker expects
	OrderTypes   map[OrderType]string
	ProductTypes []string
}

// SupportsOrderType reports whether the broker accepts the order type
func (i Info) SupportsOrderType(orderType OrderType) bool {
	_, ok := i.OrderTypes[orderType]
	return ok
}

// SupportsProductType reports whether the broker accepts the product type
func (i Info) SupportsProductType(productType string) bool {
	for _, p := range i.ProductTypes {
		if p == productType {
			return true
		}
	}
	return false
}

// SupportsExchange reports whether the broker routes to exchange
func (i Info) SupportsExchange(exchange string) bool {
	for _, e := range i.Exchanges {
		if e == exchange {
			return true
		}
	}
	return false
}

var (
	allExchanges = []string{"NSE", "BSE", "NFO", "MCX"}
	cashOnly     = []string{"NSE", "BSE"}

	standardOrderTypes = map[OrderType]string{
		OrderTypeMarket:         "MARKET",
		OrderTypeLimit:          "LIMIT",
		OrderTypeStopLoss:       "SL",
		OrderTypeStopLossMarket: "SL-M",
	}
	simpleOrderTypes = map[OrderType]string{
		OrderTypeMarket: "MARKET",
		OrderTypeLimit:  "LIMIT",
	}
)

// Catalog lists every REST brokerage the relay can route to, keyed by name
var Catalog = map[string]Info{
	"angel_one": {
		Name: "angel_one", DisplayName: "Angel One", BaseURL: "https://apiconnect.angelbroking.com",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"INTRADAY", "DELIVERY", "MARGIN", "BO", "CO"},
	},
	"upstox": {
		Name: "upstox", DisplayName: "Upstox", BaseURL: "https://api.upstox.com/v2",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"I", "D", "CO", "OCO"},
	},
	"zerodha": {
		Name: "zerodha", DisplayName: "Zerodha Kite", BaseURL: "https://api.kite.trade",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"MIS", "CNC", "NRML"},
	},
	"fyers": {
		Name: "fyers", DisplayName: "Fyers", BaseURL: "https://api.fyers.in/api/v2",
		Exchanges: allExchanges,
		OrderTypes: map[OrderType]string{
			OrderTypeLimit:          "1",
			OrderTypeMarket:         "2",
			OrderTypeStopLossMarket: "3",
			OrderTypeStopLoss:       "4",
		},
		ProductTypes: []string{"INTRADAY", "CNC", "MARGIN"},
	},
	"dhan": {
		Name: "dhan", DisplayName: "Dhan", BaseURL: "https://api.dhan.co",
		Exchanges: allExchanges,
		OrderTypes: map[OrderType]string{
			OrderTypeMarket:         "MARKET",
			OrderTypeLimit:          "LIMIT",
			OrderTypeStopLoss:       "STOP_LOSS",
			OrderTypeStopLossMarket: "STOP_LOSS_MARKET",
		},
		ProductTypes: []string{"INTRA", "CNC", "MARGIN"},
	},
	"groww": {
		Name: "groww", DisplayName: "Groww", BaseURL: "https://groww.in/v1/api",
		Exchanges: cashOnly, OrderTypes: simpleOrderTypes,
		ProductTypes: []string{"INTRADAY", "DELIVERY"},
	},
	"axis_direct": {
		Name: "axis_direct", DisplayName: "Axis Direct", BaseURL: "https://apiconnect.axisdirect.in",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"MIS", "CNC", "NRML"},
	},
	"alice_blue": {
		Name: "alice_blue", DisplayName: "Alice Blue", BaseURL: "https://ant.aliceblueonline.com/rest/AliceBlueAPIService",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"MIS", "CNC", "NRML"},
	},
	"five_paisa": {
		Name: "five_paisa", DisplayName: "5Paisa", BaseURL: "https://openapi.5paisa.com",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"INTRADAY", "DELIVERY", "MARGIN"},
	},
	"flattrade": {
		Name: "flattrade", DisplayName: "FlatTrade", BaseURL: "https://piconnect.flattrade.in/PiConnectTP",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"M", "C", "H"},
	},
	"kotak_neo": {
		Name: "kotak_neo", DisplayName: "Kotak Neo", BaseURL: "https://gw-napi.kotaksecurities.com",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"MIS", "CNC", "NRML"},
	},
	"motilal_oswal": {
		Name: "motilal_oswal", DisplayName: "Motilal Oswal", BaseURL: "https://openapi.motilaloswal.com",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"INTRADAY", "DELIVERY", "MARGIN"},
	},
	"paytm_money": {
		Name: "paytm_money", DisplayName: "Paytm Money", BaseURL: "https://developer.paytmmoney.com",
		Exchanges: cashOnly, OrderTypes: simpleOrderTypes,
		ProductTypes: []string{"INTRADAY", "DELIVERY"},
	},
	"tradejini": {
		Name: "tradejini", DisplayName: "Tradejini", BaseURL: "https://api.tradejini.com",
		Exchanges: allExchanges, OrderTypes: standardOrderTypes,
		ProductTypes: []string{"MIS", "CNC", "NRML"},
	},
}

// CatalogNames returns the sorted names of all catalogued brokers
func CatalogNames() []string {
	names := make([]string, 0, len(Catalog))
	for name := range Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
