package questions

// Defaults is the built-in bank used when no file is configured.
func Defaults() []Question {
	return []Question{
		{Text: "Which planet is closest to the Sun?", Choices: []string{"Venus", "Mercury", "Mars", "Earth"}, CorrectIndex: 1},
		{Text: "How many sides does a hexagon have?", Choices: []string{"Five", "Seven", "Six", "Eight"}, CorrectIndex: 2},
		{Text: "What is the chemical symbol for gold?", Choices: []string{"Au", "Ag", "Gd", "Go"}, CorrectIndex: 0},
		{Text: "Which ocean is the largest?", Choices: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectIndex: 3},
		{Text: "What is 7 multiplied by 8?", Choices: []string{"54", "56", "58", "64"}, CorrectIndex: 1},
		{Text: "Which gas do plants absorb from the air?", Choices: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, CorrectIndex: 2},
		{Text: "What is the boiling point of water at sea level in Celsius?", Choices: []string{"100", "90", "120", "80"}, CorrectIndex: 0},
		{Text: "Which language runs natively in web browsers?", Choices: []string{"Go", "Rust", "Python", "JavaScript"}, CorrectIndex: 3},
		{Text: "How many continents are there?", Choices: []string{"Five", "Six", "Seven", "Eight"}, CorrectIndex: 2},
		{Text: "What is the hardest natural substance?", Choices: []string{"Diamond", "Quartz", "Iron", "Granite"}, CorrectIndex: 0},
		{Text: "Which instrument has 88 keys?", Choices: []string{"Organ", "Piano", "Accordion", "Harp"}, CorrectIndex: 1},
		{Text: "What is the largest mammal?", Choices: []string{"Elephant", "Giraffe", "Blue whale", "Orca"}, CorrectIndex: 2},
		{Text: "How many bits are in a byte?", Choices: []string{"4", "16", "10", "8"}, CorrectIndex: 3},
		{Text: "Which country is home to the city of Kyoto?", Choices: []string{"Japan", "China", "Korea", "Vietnam"}, CorrectIndex: 0},
		{Text: "What is the square root of 144?", Choices: []string{"11", "12", "13", "14"}, CorrectIndex: 1},
		{Text: "Which element has the atomic number 1?", Choices: []string{"Helium", "Oxygen", "Hydrogen", "Carbon"}, CorrectIndex: 2},
		{Text: "Which is the longest river in South America?", Choices: []string{"Orinoco", "Paraná", "Magdalena", "Amazon"}, CorrectIndex: 3},
		{Text: "In which year did the first human land on the Moon?", Choices: []string{"1969", "1965", "1972", "1959"}, CorrectIndex: 0},
		{Text: "How many minutes are in a day?", Choices: []string{"1240", "1440", "1400", "1480"}, CorrectIndex: 1},
		{Text: "Which shape has all points equidistant from its center?", Choices: []string{"Square", "Ellipse", "Circle", "Triangle"}, CorrectIndex: 2},
	}
}
