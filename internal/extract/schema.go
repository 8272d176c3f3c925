package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/contractiq/contract-ocr-service/internal/models"
)

// recordSchemaJSON is the output contract: every key required, every value
// nullable, shape constraints on the normalized fields.
const recordSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": [
    "customer_name", "phone", "address", "device_model", "imei",
    "serial_number", "sim_number", "plan_name", "plan_charge",
    "minimum_monthly_plan", "down_payment", "contract_date",
    "contract_end_date", "order_number", "activity", "add_ons"
  ],
  "properties": {
    "customer_name": {"type": ["string", "null"], "minLength": 1},
    "phone": {"type": ["string", "null"], "pattern": "^[0-9]{10}$"},
    "address": {"type": ["string", "null"], "minLength": 1},
    "device_model": {"type": ["string", "null"]},
    "imei": {"type": ["string", "null"], "pattern": "^[0-9]{10,20}$"},
    "serial_number": {"type": ["string", "null"]},
    "sim_number": {"type": ["string", "null"], "pattern": "^[0-9]{18,22}$"},
    "plan_name": {"type": ["string", "null"]},
    "plan_charge": {"type": ["number", "null"], "minimum": 0},
    "minimum_monthly_plan": {"type": ["number", "null"], "minimum": 0},
    "down_payment": {"type": ["number", "null"], "minimum": 0},
    "contract_date": {"type": ["string", "null"], "format": "date"},
    "contract_end_date": {"type": ["string", "null"], "format": "date"},
    "order_number": {"type": ["string", "null"]},
    "activity": {"type": ["string", "null"]},
    "add_ons": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "monthly_charge"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "monthly_charge": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

var recordSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource("contract_record.json", strings.NewReader(recordSchemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("contract_record.json")
}()

// downgradeInvalid validates rec against the output schema and nulls any
// field that violates its constraint, rather than failing the record.
func downgradeInvalid(rec *models.ContractRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return
	}
	err = recordSchema.Validate(doc)
	if err == nil {
		return
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return
	}
	for _, field := range violatedFields(ve) {
		clearField(rec, field)
	}
}

// violatedFields collects the top-level record keys named by the leaf
// causes of a validation error.
func violatedFields(ve *jsonschema.ValidationError) []string {
	var fields []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if loc := strings.TrimPrefix(e.InstanceLocation, "/"); loc != "" && loc != e.InstanceLocation {
			if i := strings.IndexByte(loc, '/'); i >= 0 {
				loc = loc[:i]
			}
			fields = append(fields, loc)
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return fields
}

func clearField(rec *models.ContractRecord, field string) {
	switch field {
	case FieldCustomerName:
		rec.CustomerName = nil
	case FieldPhone:
		rec.Phone = nil
	case FieldAddress:
		rec.Address = nil
	case FieldDeviceModel:
		rec.DeviceModel = nil
	case FieldIMEI:
		rec.IMEI = nil
	case FieldSerialNumber:
		rec.SerialNumber = nil
	case FieldSIMNumber:
		rec.SIMNumber = nil
	case FieldPlanName:
		rec.PlanName = nil
	case FieldPlanCharge:
		rec.PlanCharge = nil
	case FieldMinimumMonthlyPlan:
		rec.MinimumMonthlyPlan = nil
	case FieldDownPayment:
		rec.DownPayment = nil
	case FieldContractDate:
		rec.ContractDate = nil
	case FieldContractEndDate:
		rec.ContractEndDate = nil
	case FieldOrderNumber:
		rec.OrderNumber = nil
	case FieldActivity:
		rec.Activity = nil
	case "add_ons":
		rec.AddOns = []models.AddOn{}
	}
}
