package classifier

// Категория с весом и списком ключевых слов.
// Порядок категорий в таблице важен: при равных баллах побеждает та, что выше.
type category struct {
	name     string
	weight   float64
	keywords []string
}

var categories = []category{
	{
		name:   "fintech",
		weight: 1.0,
		keywords: []string{
			"fintech", "financial technology", "digital payments", "blockchain",
			"cryptocurrency", "bitcoin", "ethereum", "defi", "neobank",
			"digital banking", "mobile payments", "payment gateway", "wallet",
			"lending", "insurtech", "regtech", "wealthtech", "robo-advisor",
		},
	},
	{
		name:   "payments",
		weight: 1.0,
		keywords: []string{
			"payments", "payment", "transaction", "merchant", "pos", "card",
			"credit card", "debit card", "contactless", "nfc", "qr code",
			"digital wallet", "apple pay", "google pay", "paypal", "stripe",
			"square", "visa", "mastercard", "amex", "processing",
		},
	},
	{
		name:   "banking",
		weight: 0.8,
		keywords: []string{
			"banking", "bank", "financial services", "retail banking",
			"commercial banking", "investment banking", "central bank",
			"federal reserve", "interest rates", "loans", "mortgages",
			"deposits", "savings", "checking account", "atm",
		},
	},
	{
		name:   "ecommerce",
		weight: 0.7,
		keywords: []string{
			"ecommerce", "e-commerce", "online shopping", "retail",
			"marketplace", "amazon", "shopify", "alibaba", "ebay",
			"online payments", "checkout", "cart abandonment",
			"conversion rate", "customer experience",
		},
	},
	{
		name:   "technology",
		weight: 0.6,
		keywords: []string{
			"artificial intelligence", "machine learning", "ai", "ml",
			"automation", "api", "cloud computing", "saas", "software",
			"mobile app", "cybersecurity", "data analytics", "big data",
		},
	},
	{
		name:   "business",
		weight: 0.5,
		keywords: []string{
			"startup", "funding", "investment", "venture capital", "ipo",
			"merger", "acquisition", "partnership", "revenue", "growth",
			"market share", "competition", "strategy", "innovation",
		},
	},
}

// Группа тегов: регион со списком стран или отраслевой сегмент
type tagGroup struct {
	name     string
	keywords []string
}

var regions = []tagGroup{
	{name: "Southeast Asia", keywords: []string{"singapore", "malaysia", "thailand", "indonesia", "philippines", "vietnam"}},
	{name: "Middle East", keywords: []string{"uae", "dubai", "saudi arabia", "qatar", "kuwait", "bahrain", "oman"}},
	{name: "Asia Pacific", keywords: []string{"china", "japan", "south korea", "india", "australia", "hong kong"}},
	{name: "Europe", keywords: []string{"uk", "germany", "france", "netherlands", "sweden", "switzerland"}},
	{name: "North America", keywords: []string{"usa", "united states", "canada", "mexico"}},
}

var segments = []tagGroup{
	{name: "E-commerce", keywords: []string{"ecommerce", "e-commerce", "online shopping", "marketplace"}},
	{name: "Banking", keywords: []string{"bank", "banking", "financial institution", "credit union"}},
	{name: "Insurance", keywords: []string{"insurance", "insurtech", "policy", "claims"}},
	{name: "Investment", keywords: []string{"investment", "trading", "wealth management", "asset management"}},
	{name: "Lending", keywords: []string{"lending", "loan", "credit", "mortgage"}},
	{name: "Remittance", keywords: []string{"remittance", "money transfer", "cross border"}},
	{name: "Cryptocurrency", keywords: []string{"crypto", "bitcoin", "blockchain", "digital currency"}},
	{name: "Retail", keywords: []string{"retail", "pos", "point of sale", "merchant"}},
	{name: "Healthcare", keywords: []string{"healthcare", "health", "medical", "telemedicine"}},
	{name: "Education", keywords: []string{"education", "edtech", "learning", "training"}},
}

// Categories возвращает названия категорий в порядке таблицы
func Categories() []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.name)
	}
	return names
}
