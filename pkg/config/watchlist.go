package config

// defaultWatchlist fits the free Twelve Data plan: ~80 symbols keeps a
// full cycle (quote + history per symbol) within the daily credit budget.
// Top 50 US plus the 15 largest CAC 40 and DAX names.
func defaultWatchlist() []string {
	return []string{
		"NVDA", "AAPL", "MSFT", "AMZN", "GOOGL", "META", "AVGO", "TSLA", "BRK.B",
		"LLY", "JPM", "WMT", "V", "ORCL", "MA", "XOM", "JNJ", "PLTR", "BAC",
		"ABBV", "NFLX", "COST", "AMD", "HD", "PG", "GE", "MU", "CSCO", "UNH",
		"KO", "CVX", "CRM", "MCD", "TMO", "ABT", "ISRG", "DIS", "PEP", "QCOM",
		"ADBE", "TXN", "NOW", "UBER", "PANW", "CRWD", "COIN", "DDOG", "SNOW", "SQ",

		"MC.PA", "OR.PA", "RMS.PA", "TTE.PA", "SAN.PA", "AIR.PA", "SU.PA", "AI.PA",
		"BNP.PA", "SAF.PA", "EL.PA", "KER.PA", "DG.PA", "DSY.PA", "STM.PA",

		"SAP.DE", "SIE.DE", "ALV.DE", "DTE.DE", "MBG.DE", "BMW.DE", "MUV2.DE",
		"BAS.DE", "IFX.DE", "ADS.DE", "DB1.DE", "DPW.DE", "VOW3.DE", "RWE.DE", "MTX.DE",
	}
}

// defaultTickerNames maps tickers to the display names used in news
// queries.
func defaultTickerNames() map[string]string {
	return map[string]string{
		"NVDA": "Nvidia", "AAPL": "Apple", "MSFT": "Microsoft", "AMZN": "Amazon",
		"GOOGL": "Google Alphabet", "META": "Meta Facebook", "AVGO": "Broadcom",
		"TSLA": "Tesla", "BRK.B": "Berkshire Hathaway", "LLY": "Eli Lilly", "JPM": "JPMorgan",
		"WMT": "Walmart", "V": "Visa", "ORCL": "Oracle", "MA": "Mastercard",
		"XOM": "ExxonMobil", "JNJ": "Johnson & Johnson", "PLTR": "Palantir", "BAC": "Bank of America",
		"ABBV": "AbbVie", "NFLX": "Netflix", "COST": "Costco", "AMD": "AMD",
		"HD": "Home Depot", "PG": "Procter & Gamble", "GE": "General Electric", "MU": "Micron",
		"CSCO": "Cisco", "UNH": "UnitedHealth", "KO": "Coca-Cola", "CVX": "Chevron",
		"CRM": "Salesforce", "MCD": "McDonald's", "TMO": "Thermo Fisher", "ABT": "Abbott",
		"ISRG": "Intuitive Surgical", "DIS": "Disney", "PEP": "PepsiCo", "QCOM": "Qualcomm",
		"ADBE": "Adobe", "TXN": "Texas Instruments", "NOW": "ServiceNow", "UBER": "Uber",
		"PANW": "Palo Alto Networks", "CRWD": "CrowdStrike", "COIN": "Coinbase",
		"DDOG": "Datadog", "SNOW": "Snowflake", "SQ": "Block Square",

		"MC.PA": "LVMH", "OR.PA": "L'Oréal", "RMS.PA": "Hermès", "TTE.PA": "TotalEnergies",
		"SAN.PA": "Sanofi", "AIR.PA": "Airbus", "SU.PA": "Schneider Electric", "AI.PA": "Air Liquide",
		"BNP.PA": "BNP Paribas", "SAF.PA": "Safran", "EL.PA": "EssilorLuxottica",
		"KER.PA": "Kering", "DG.PA": "Vinci", "DSY.PA": "Dassault Systèmes", "STM.PA": "STMicroelectronics",

		"SAP.DE": "SAP", "SIE.DE": "Siemens", "ALV.DE": "Allianz", "DTE.DE": "Deutsche Telekom",
		"MBG.DE": "Mercedes-Benz", "BMW.DE": "BMW", "MUV2.DE": "Munich Re",
		"BAS.DE": "BASF", "IFX.DE": "Infineon", "ADS.DE": "Adidas",
		"DB1.DE": "Deutsche Börse", "DPW.DE": "Deutsche Post", "VOW3.DE": "Volkswagen",
		"RWE.DE": "RWE", "MTX.DE": "MTU Aero",
	}
}

// defaultNewsDomains whitelists reliable financial outlets for NewsAPI
// queries.
func defaultNewsDomains() []string {
	return []string{
		"reuters.com",
		"bloomberg.com",
		"cnbc.com",
		"wsj.com",
		"ft.com",
		"marketwatch.com",
		"finance.yahoo.com",
		"barrons.com",
		"seekingalpha.com",
		"investors.com",
	}
}
