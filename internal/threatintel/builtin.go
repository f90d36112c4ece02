package threatintel

func builtin() *Lists {
	return &Lists{
		// Matched as the whole host or a parent domain of it.
		TrustedDomains: []string{
			"google.com", "github.com", "stackoverflow.com", "wikipedia.org", "amazon.com",
			"facebook.com", "twitter.com", "youtube.com", "linkedin.com", "microsoft.com",
			"apple.com", "ibm.com", "github.io", "heroku.com", "netlify.com", "vercel.com",
			"reddit.com", "quora.com", "gmail.com", "outlook.com", "mail.com", "mozilla.org",
			"edu", "gov", "ac.uk",
		},
		FinancialKeywords: []string{
			"bank", "banking", "paypal", "stripe", "square", "checkout", "payment", "credit",
			"debit", "card", "visa", "mastercard", "amex", "crypto", "bitcoin", "ethereum",
			"wallet", "transfer", "send-money", "wire",
		},
		UrgencyKeywords: []string{
			"verify", "confirm", "urgent", "immediate", "act-now", "hurry", "limited-time",
			"expires", "deadline", "asap", "now", "immediately", "click-here", "click-now",
			"update-now", "renew-now", "claim-now", "validate", "authenticate", "reactivate",
			"reconfirm", "reclaim",
		},
		SecurityThreatKeywords: []string{
			"suspicious", "unusual-activity", "unauthorized", "compromised", "breach", "hacked",
			"stolen", "exposed", "violation", "fraud-alert", "alert", "warning", "danger",
			"suspended", "locked", "disabled", "confirm-identity", "verify-account",
			"reset-password", "update-password",
		},
		PhishingPatterns: []string{
			"paypa1", "paypa|", "paypa7", "p4ypal", "amazom", "amaz0n", "amaz0m", "amzn-",
			"gogle", "g00gle", "goog1e", "faceb00k", "facebok", "facebook1", "instgram",
			"instagam", "instagram1", "tw1tter", "twiter", "appl3", "aple", "micr0soft",
			"microsft", "microsoft1", "linkedm", "linked1n", "github1", "git-hub", "github-login",
		},
		SuspiciousTLDs: []string{
			".tk", ".ml", ".ga", ".cf", ".xyz", ".top", ".work", ".online", ".site", ".space",
			".store", ".click", ".download", ".racing", ".win", ".stream", ".accountant",
			".party", ".science", ".webcam", ".review", ".date", ".faith", ".men", ".fitness",
		},
		// Matched as the whole host or a parent domain of it.
		URLShorteners: []string{
			"bit.ly", "tinyurl.com", "ow.ly", "short.url", "goo.gl", "buff.ly", "adf.ly",
			"shorte.st", "u.to", "v.gd", "x.co", "t.co", "is.gd", "cutt.ly", "rb.gy", "tiny.cc",
		},
		SuspiciousParams: []string{
			"redirect", "return", "callback", "action=login", "action=verify", "form=login",
			"login_page", "verify_page", "page=login", "redir", "ref=", "return_to", "goto",
			"url=", "returnurl",
		},
		SuspiciousSubdomains: []string{
			"verify", "secure", "login", "account", "signin", "auth", "update", "wallet", "support",
		},
		PiracyDomains: []string{
			"movierulz.com", "movierulz.net", "movierulz.io", "movierulz.wtf",
			"tamilrockers.ws", "filmyzilla.com", "isaimini.com", "fmovies.to", "123movies.la",
			"putlocker.is", "thepiratebay.org", "1337x.to", "rarbg.to", "torrentz2.eu",
			"extratorrent.si", "filmywap.com", "khatrimaza.org", "moviesda.com", "todaypk.com",
			"bolly4u.org", "worldfree4u.com", "9xmovies.com", "pagalworld.com",
		},
		PiracyKeywords: []string{
			"watch-free", "free-movies", "movie-download", "torrent", "pirated", "camrip",
			"hdcam", "dvdscr", "leaked-movie", "keygen", "warez", "nulled", "cracked-software",
		},
		IllegalKeywords: []string{
			"darkweb", "dark-web", "buy-drugs", "fake-id", "fake-passport", "counterfeit",
			"carding", "cvv-shop", "hitman", "stolen-accounts",
		},
		ScamPatterns: []Group{
			{Name: "romance", Label: "Romance/Dating Scam", Keywords: []string{
				"love", "dating", "relationship", "beautiful", "travel", "marry",
			}},
			{Name: "lottery", Label: "Lottery/Prize Scam", Keywords: []string{
				"won", "prize", "claim", "lottery", "cash", "winner", "select",
			}},
			{Name: "job", Label: "Job Scam", Keywords: []string{
				"hiring", "jobs", "employment", "work-from-home", "position", "salary",
			}},
			{Name: "tech", Label: "Tech Support Scam", Keywords: []string{
				"download", "update", "install", "activate", "software", "driver",
			}},
			{Name: "government", Label: "Government Impersonation", Keywords: []string{
				"tax", "refund", "irs", "revenue", "benefit", "social-security",
			}},
		},
		RegionalPatterns: []Group{
			{Name: "india", Label: "India", Keywords: []string{
				"upi", "paytm", "phonepe", "aadhaar", "aadhar", "pan-card", "kyc", "neft", "rtgs",
				"imps", "sbi", "icici", "hdfc", "axis-bank", "rbi", "income-tax", "gst-refund",
			}},
			{Name: "united-states", Label: "United States", Keywords: []string{
				"ssn", "medicare", "stimulus", "usps", "irs-", "social-security-number",
			}},
			{Name: "united-kingdom", Label: "United Kingdom", Keywords: []string{
				"hmrc", "royal-mail", "dvla", "nhs-", "council-tax",
			}},
			{Name: "nigeria", Label: "Nigeria", Keywords: []string{
				"inheritance", "next-of-kin", "beneficiary", "barrister", "diplomat",
			}},
		},
	}
}
