package entity

// NamedValue is one slice of a breakdown series.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type ZoneMeterReading struct {
	Label   string  `json:"label"`
	AcctNum string  `json:"acct_num"`
	Type    string  `json:"type"`
	Reading float64 `json:"reading"`
}

type ZoneData struct {
	Name              string             `json:"name"`
	L2Reading         float64            `json:"l2_reading"`
	L3Sum             float64            `json:"l3_sum"`
	Loss              float64            `json:"loss"`
	LossPercent       float64            `json:"loss_percent"`
	ConsumptionByType []NamedValue       `json:"consumption_by_type"`
	Meters            []ZoneMeterReading `json:"meters"`
}

type TrendPoint struct {
	Month       string  `json:"month"`
	Consumption float64 `json:"consumption"`
}

type ZoneConsumption struct {
	Zone        string  `json:"zone"`
	Consumption float64 `json:"consumption"`
}

type TypeData struct {
	Name             string            `json:"name"`
	TotalConsumption float64           `json:"total_consumption"`
	TrendData        []TrendPoint      `json:"trend_data"`
	ZoneBreakdown    []ZoneConsumption `json:"zone_breakdown"`
}

// MonthLoss is the hierarchy balance of one month. Losses are not clamped.
type MonthLoss struct {
	Month             string  `json:"month"`
	L1Supply          float64 `json:"l1_supply"`
	L2Volume          float64 `json:"l2_volume"`
	L3Volume          float64 `json:"l3_volume"`
	Stage1Loss        float64 `json:"stage1_loss"`
	Stage2Loss        float64 `json:"stage2_loss"`
	TotalLoss         float64 `json:"total_loss"`
	Stage1LossPercent float64 `json:"stage1_loss_percent"`
	Stage2LossPercent float64 `json:"stage2_loss_percent"`
	TotalLossPercent  float64 `json:"total_loss_percent"`

	// L1Substituted is set when the supply figure came from a fallback meter.
	L1Substituted bool   `json:"l1_substituted"`
	L1SourceMeter string `json:"l1_source_meter,omitempty"`
	L1ZeroAlarm   bool   `json:"l1_zero_alarm"`
}

// LossReport is the full aggregation output, keyed by "Mon-YY".
type LossReport struct {
	Months            []string                       `json:"months"`
	Years             []string                       `json:"years"`
	Losses            map[string]MonthLoss           `json:"losses"`
	ZoneData          map[string]map[string]ZoneData `json:"zone_data"`
	TypeData          map[string]map[string]TypeData `json:"type_data"`
	ConsumptionByType map[string][]NamedValue        `json:"consumption_by_type"`
}
