package sales

// Category names a group of interchangeable reply templates.
type Category string

const (
	CategoryPricing        Category = "pricing"
	CategoryPain           Category = "pain-amplification"
	CategoryObjectionCost  Category = "objection-cost"
	CategoryObjectionTime  Category = "objection-time"
	CategoryObjectionOther Category = "objection-generic"
	CategoryPortfolio      Category = "portfolio"
	CategoryServices       Category = "services"
	CategoryCommitment     Category = "commitment-ladder"
	CategoryAbout          Category = "about"
	CategoryGreeting       Category = "greeting"
	CategoryDiscovery      Category = "discovery"
)

// Catalog holds the ordered variants for every category. Copy is static; numbers and case
// studies are part of the script.
type Catalog map[Category][]string

var topicCategories = map[Topic]Category{
	TopicPortfolio: CategoryPortfolio,
	TopicServices:  CategoryServices,
	TopicContact:   CategoryCommitment,
	TopicAbout:     CategoryAbout,
	TopicGreeting:  CategoryGreeting,
}

// DefaultCatalog returns a fresh copy of the built-in script.
func DefaultCatalog() Catalog {
	return Catalog{
		CategoryPricing: {
			"Great question, and before we talk numbers, let's talk about what you get back. " +
				"My last e-commerce client invested $12,000 and generated $470K in additional revenue within six months. " +
				"Most of my projects land between $5,000 and $25,000 depending on scope, and I only take on 3 new clients per quarter. " +
				"What would solving this problem be worth to your business over the next year?",
			"Happy to be transparent. Projects typically start at $5,000 for a focused build and go up to $25,000+ for full platforms. " +
				"But the better number is ROI: clients see an average 3.2x return within the first year, and CriOS Nova paid for itself in under 60 days. " +
				"I have 2 slots left this quarter. What's the one outcome that would make this investment a no-brainer for you?",
		},
		CategoryPain: {
			"I hear you, and you're not alone. Most founders I work with were stuck in exactly that spot before we fixed it. " +
				"The tricky part is that problems like this compound: every month it stays unsolved usually costs more in lost time and revenue than fixing it would. " +
				"If this was completely solved 90 days from now, what would that change for you?",
		},
		CategoryObjectionCost: {
			"Totally fair, and I'd rather you think of this as an investment than a cost. " +
				"My e-commerce client was worried about the same thing; the project paid back in 7 weeks and returned $470K in six months, a 39x ROI. " +
				"I also offer phased payments so the first milestone pays for itself before the next one starts. " +
				"What's the cost of leaving this unsolved for another six months?",
		},
		CategoryObjectionTime: {
			"Completely understand wanting to take your time. Just so you have the full picture: I book out 6-8 weeks ahead and only 2 slots remain this quarter. " +
				"Every month of waiting is another month the problem keeps costing you. " +
				"How about a free 15-minute call this week, no commitment, so you can decide with all the facts?",
		},
		CategoryObjectionOther: {
			"That's a fair concern, and I appreciate you being upfront about it. " +
				"Plenty of my best clients had the same hesitation at first; after working together, 94% of them came back for a second project. " +
				"What would you need to see to feel confident about moving forward?",
		},
		CategoryPortfolio: {
			"Here are a few projects I'm proud of:\n\n" +
				"- CriOS Nova: an AI-powered operations platform, 150+ businesses onboarded in the first quarter with a 40% drop in manual work.\n" +
				"- E-commerce rebuild: a headless storefront that generated $470K in additional revenue in six months and cut page load time by 68%.\n" +
				"- SaaS analytics dashboard: real-time reporting for 10,000+ daily users, built in 8 weeks.\n\n" +
				"Which of these is closest to what you're trying to build?",
		},
		CategoryServices: {
			"I help businesses turn ideas into products that actually make money. Three ways we can work together:\n\n" +
				"1. Launch ($5,000+): a focused MVP or landing experience, live in 3-4 weeks.\n" +
				"2. Growth ($12,000+): a full web platform with integrations, analytics, and conversion optimization.\n" +
				"3. Partner ($25,000+): end-to-end product development with AI features and ongoing strategy.\n\n" +
				"Which of these sounds closest to where you are right now?",
		},
		CategoryCommitment: {
			"Let's make it easy. The best next step is a free 30-minute strategy call where we map out exactly what you need, no strings attached. " +
				"If you're not ready for a call yet, just drop your email and I'll send you a short case study showing how we got a client to $470K in six months. " +
				"Which works better for you?",
		},
		CategoryAbout: {
			"I'm a full-stack developer and product strategist with 8+ years of experience shipping software for startups and growing businesses. " +
				"I've delivered 50+ projects, including CriOS Nova (150+ businesses onboarded) and an e-commerce rebuild that added $470K in revenue. " +
				"I focus on outcomes, not just code. What are you working on right now?",
		},
		CategoryGreeting: {
			"Hey there! Great to have you here. I help founders and teams build products that grow their business, from AI platforms to high-converting e-commerce. " +
				"I'm curious: what's the biggest bottleneck in your business right now?",
		},
		CategoryDiscovery: {
			"Thanks for sharing that. To point you in the right direction, tell me a little more about your business. " +
				"What's the one thing that, if you fixed it this quarter, would make the biggest difference?",
		},
	}
}
