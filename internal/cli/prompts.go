package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/gateway"

	"github.com/AlecAivazis/survey/v2"
)

// PromptForBot asks for a bot definition and its strategy parameters
func PromptForBot() (gateway.CreateBotRequest, error) {
	answers := struct {
		Name       string
		Strategy   string
		Exchange   string
		BaseAsset  string
		QuoteAsset string
	}{}

	questions := []*survey.Question{
		{
			Name:     "name",
			Prompt:   &survey.Input{Message: "Bot name:"},
			Validate: survey.ComposeValidators(survey.Required, survey.MaxLength(50)),
		},
		{
			Name: "strategy",
			Prompt: &survey.Select{
				Message: "Strategy:",
				Options: []string{
					string(model.StrategyMarketMaking),
					string(model.StrategyArbitrage),
					string(model.StrategyGridTrading),
				},
			},
		},
		{
			Name:     "exchange",
			Prompt:   &survey.Input{Message: "Exchange:", Default: "binance"},
			Validate: survey.Required,
		},
		{
			Name:      "baseasset",
			Prompt:    &survey.Input{Message: "Base asset:", Default: "BTC"},
			Validate:  survey.Required,
			Transform: survey.TransformString(strings.ToUpper),
		},
		{
			Name:      "quoteasset",
			Prompt:    &survey.Input{Message: "Quote asset:", Default: "USDT"},
			Validate:  survey.Required,
			Transform: survey.TransformString(strings.ToUpper),
		},
	}

	if err := survey.Ask(questions, &answers); err != nil {
		return gateway.CreateBotRequest{}, err
	}

	req := gateway.CreateBotRequest{
		Name:       strings.TrimSpace(answers.Name),
		Strategy:   model.Strategy(answers.Strategy),
		Exchange:   strings.ToLower(strings.TrimSpace(answers.Exchange)),
		BaseAsset:  answers.BaseAsset,
		QuoteAsset: answers.QuoteAsset,
	}

	params, err := promptForParams(req.Strategy)
	if err != nil {
		return gateway.CreateBotRequest{}, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return gateway.CreateBotRequest{}, err
	}
	req.Config = raw
	return req, nil
}

type paramKind int

const (
	paramDecimal paramKind = iota
	paramInt
	paramText
)

type paramField struct {
	name string
	kind paramKind
}

// strategyFields lists the parameters asked for each strategy
var strategyFields = map[model.Strategy][]paramField{
	model.StrategyMarketMaking: {
		{"bidSpread", paramDecimal},
		{"askSpread", paramDecimal},
		{"orderSize", paramDecimal},
		{"orderInterval", paramInt},
		{"minProfitability", paramDecimal},
	},
	model.StrategyArbitrage: {
		{"primaryExchange", paramText},
		{"secondaryExchange", paramText},
		{"minProfitability", paramDecimal},
		{"slippage", paramDecimal},
		{"minOrderSize", paramDecimal},
		{"maxOrderSize", paramDecimal},
	},
	model.StrategyGridTrading: {
		{"upperPrice", paramDecimal},
		{"lowerPrice", paramDecimal},
		{"gridLevels", paramInt},
		{"gridSpacing", paramDecimal},
		{"orderSize", paramDecimal},
	},
}

func promptForParams(strategy model.Strategy) (map[string]interface{}, error) {
	params := make(map[string]interface{})
	for _, field := range strategyFields[strategy] {
		var value string
		opts := []survey.AskOpt{survey.WithValidator(survey.Required)}
		switch field.kind {
		case paramInt:
			opts = append(opts, survey.WithValidator(integer))
		case paramDecimal:
			opts = append(opts, survey.WithValidator(numeric))
		}

		if err := survey.AskOne(&survey.Input{Message: field.name + ":"}, &value, opts...); err != nil {
			return nil, err
		}

		value = strings.TrimSpace(value)
		if field.kind == paramInt {
			n, _ := strconv.Atoi(value)
			params[field.name] = n
		} else {
			params[field.name] = value
		}
	}
	return params, nil
}

func numeric(val interface{}) error {
	s, _ := val.(string)
	if _, err := model.ParseDecimal(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("must be a number")
	}
	return nil
}

func integer(val interface{}) error {
	s, _ := val.(string)
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("must be a whole number")
	}
	return nil
}
