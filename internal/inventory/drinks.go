package inventory

// DefaultDrinks 出厂饮料表，冷饮20种、热饮20种，每种库存1
func DefaultDrinks() []Item {
	return []Item{
		{Name: "冰美式", Thermal: Cold, Mood: Tired, Taste: Bitter, Caffeine: true, Price: 1500, Stock: 1, Gate: 12},
		{Name: "柠檬水", Thermal: Cold, Mood: Energetic, Taste: Sweet, Caffeine: false, Price: 1700, Stock: 1, Gate: 21},
		{Name: "可乐", Thermal: Cold, Mood: Energetic, Taste: Neutral, Caffeine: true, Price: 2000, Stock: 1, Gate: 12},
		{Name: "零度可乐", Thermal: Cold, Mood: Energetic, Taste: Neutral, Caffeine: true, Price: 2000, Stock: 1, Gate: 21},
		{Name: "苏打水", Thermal: Cold, Mood: Energetic, Taste: Neutral, Caffeine: false, Price: 2000, Stock: 1, Gate: 12},
		{Name: "葡萄汁", Thermal: Cold, Mood: Calm, Taste: Sweet, Caffeine: false, Price: 1700, Stock: 1, Gate: 21},
		{Name: "橙汁", Thermal: Cold, Mood: Calm, Taste: Sweet, Caffeine: false, Price: 1700, Stock: 1, Gate: 12},
		{Name: "芒果汁", Thermal: Cold, Mood: Calm, Taste: Sweet, Caffeine: false, Price: 1700, Stock: 1, Gate: 21},
		{Name: "西瓜汁", Thermal: Cold, Mood: Calm, Taste: Sweet, Caffeine: false, Price: 1700, Stock: 1, Gate: 12},
		{Name: "薄荷茶", Thermal: Cold, Mood: Energetic, Taste: Bitter, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "松针饮料", Thermal: Cold, Mood: Energetic, Taste: Neutral, Caffeine: false, Price: 1700, Stock: 1, Gate: 12},
		{Name: "冰红茶", Thermal: Cold, Mood: Calm, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "雪碧", Thermal: Cold, Mood: Energetic, Taste: Neutral, Caffeine: false, Price: 2000, Stock: 1, Gate: 12},
		{Name: "芬达", Thermal: Cold, Mood: Energetic, Taste: Neutral, Caffeine: false, Price: 2000, Stock: 1, Gate: 21},
		{Name: "枳椇茶", Thermal: Cold, Mood: Tired, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "运动饮料", Thermal: Cold, Mood: Calm, Taste: Neutral, Caffeine: false, Price: 1700, Stock: 1, Gate: 21},
		{Name: "米浆", Thermal: Cold, Mood: Calm, Taste: Neutral, Caffeine: false, Price: 1700, Stock: 1, Gate: 12},
		{Name: "大麦茶", Thermal: Cold, Mood: Calm, Taste: Bitter, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "冰巧克力", Thermal: Cold, Mood: Tired, Taste: Sweet, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "炒面茶", Thermal: Cold, Mood: Calm, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "红薯拿铁", Thermal: Hot, Mood: Tired, Taste: Sweet, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "姜茶", Thermal: Hot, Mood: Tired, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "红枣茶", Thermal: Hot, Mood: Tired, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "柚子茶", Thermal: Hot, Mood: Calm, Taste: Sweet, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "蜂蜜水", Thermal: Hot, Mood: Tired, Taste: Sweet, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "香草拿铁", Thermal: Hot, Mood: Tired, Taste: Sweet, Caffeine: true, Price: 1500, Stock: 1, Gate: 21},
		{Name: "焦糖玛奇朵", Thermal: Hot, Mood: Calm, Taste: Sweet, Caffeine: true, Price: 1500, Stock: 1, Gate: 12},
		{Name: "热巧克力", Thermal: Hot, Mood: Tired, Taste: Sweet, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "豆浆", Thermal: Hot, Mood: Calm, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "红茶", Thermal: Hot, Mood: Calm, Taste: Bitter, Caffeine: true, Price: 1500, Stock: 1, Gate: 21},
		{Name: "薏米茶", Thermal: Hot, Mood: Calm, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "牛奶咖啡", Thermal: Hot, Mood: Tired, Taste: Bitter, Caffeine: true, Price: 1500, Stock: 1, Gate: 21},
		{Name: "奶茶", Thermal: Hot, Mood: Calm, Taste: Neutral, Caffeine: true, Price: 1500, Stock: 1, Gate: 12},
		{Name: "罐装咖啡", Thermal: Hot, Mood: Tired, Taste: Bitter, Caffeine: true, Price: 1500, Stock: 1, Gate: 21},
		{Name: "桔梗茶", Thermal: Hot, Mood: Tired, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "柠檬茶", Thermal: Hot, Mood: Energetic, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "抹茶拿铁", Thermal: Hot, Mood: Calm, Taste: Bitter, Caffeine: true, Price: 1500, Stock: 1, Gate: 12},
		{Name: "谷物拿铁", Thermal: Hot, Mood: Calm, Taste: Sweet, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
		{Name: "人参茶", Thermal: Hot, Mood: Energetic, Taste: Bitter, Caffeine: false, Price: 1500, Stock: 1, Gate: 12},
		{Name: "双和茶", Thermal: Hot, Mood: Tired, Taste: Neutral, Caffeine: false, Price: 1500, Stock: 1, Gate: 21},
	}
}
