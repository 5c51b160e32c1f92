package gpt

import (
	"fmt"

	"github.com/hammamikhairi/recipevoice/internal/domain"
)

// System prompts live here so wording changes are a single-file edit.
// Keep them concise: every token costs money and latency.

// PromptSystemJSON is the system message for every structured call. The
// model must answer with JSON only.
const PromptSystemJSON = `You are a recipe search assistant. You answer with a single JSON value and nothing else: no markdown fences, no explanation outside the JSON.`

// promptExtractFirst turns a first recipe request into search preferences.
// %q is the user's request.
const promptExtractFirst = `Extract the following information from this recipe request: %q
- diet_type (vegetarian, vegan, or non-veg)
- cuisine (e.g., Indian, Chinese, Italian, etc.)
- dish_attributes (specific characteristics or preferences)

Return the information in this JSON format:
{
  "diet_type": "vegetarian", "vegan", "non-veg", or null,
  "cuisine": specific cuisine or null,
  "dish_attributes": specific attributes or null,
  "clarifying_questions": ["question for missing field 1", "question for missing field 2"]
}

Rules:
1. Only ask clarifying questions if absolutely necessary
2. If you understand any preference, use it
3. If a field is unclear, set it to null and add a clarifying question
4. If the user says "any", "no preference", or similar, set that field to "any"`

// promptExtractFollowUp folds an answer to a clarifying question into the
// previous preferences. Args: diet, cuisine, attributes, answer.
const promptExtractFollowUp = `Previous context:
- Diet type: %s
- Cuisine: %s
- Dish attributes: %s

User's response to clarifying questions: %q

Extract the following information and return it in this JSON format:
{
  "diet_type": "vegetarian", "vegan", "non-veg", or null,
  "cuisine": specific cuisine or null,
  "dish_attributes": specific attributes or null,
  "clarifying_questions": ["question for missing field 1", "question for missing field 2"]
}

Rules:
1. Keep all previously provided values unless explicitly changed
2. Only ask clarifying questions for fields that are still unclear
3. If the user provides new information, update only those specific fields
4. If a field is still unclear, set it to null and add a clarifying question
5. If the user says "any", "no preference", or similar, set that field to "any"`

// promptNutrition asks for a nutrition estimate. %s is the recipe text.
const promptNutrition = `Analyze this recipe and provide nutritional information per serving.
Recipe: %s

Return ONLY a JSON object in this exact format:
{
  "nutrition": {"calories": number or null, "protein": number or null, "carbs": number or null, "fat": number or null},
  "confidence": {"calories": 0-1, "protein": 0-1, "carbs": 0-1, "fat": 0-1},
  "serving_size": {"amount": number or null, "unit": "g", "ml", "oz", "cup" or null},
  "notes": ["assumptions made", "key ingredients considered", "limitations of the analysis"]
}

Rules:
1. All numbers must be integers or floats; protein, carbs and fat are grams
2. Confidence scores must be between 0 and 1 (0 = completely uncertain, 1 = completely certain)
3. If you can't determine a value, use null
4. Base estimates on standard portion sizes and consider cooking methods
5. Be conservative in your estimates`

// promptBlogSearch asks for blog recipes. Args: count, search phrase.
const promptBlogSearch = `Find %d recipes from well-known food blogs matching: %q.
Return a JSON object {"recipes": [...]} where each item is {"title": string, "url": string, "description": string}.
The description should list the main ingredients and the cooking method in one or two sentences.
Only include recipes you are confident exist at the given URL.`

// ExtractFirstPrompt builds the prompt for a new recipe request.
func ExtractFirstPrompt(text string) string {
	return fmt.Sprintf(promptExtractFirst, text)
}

// ExtractFollowUpPrompt builds the prompt for an answer to a clarifying
// question, given the previous context.
func ExtractFollowUpPrompt(text string, prev *domain.Context) string {
	return fmt.Sprintf(promptExtractFollowUp,
		promptValue(prev.DietType), promptValue(prev.Cuisine), promptValue(prev.DishAttributes), text)
}

// NutritionPrompt builds the nutrition estimate prompt.
func NutritionPrompt(recipeText string) string {
	return fmt.Sprintf(promptNutrition, recipeText)
}

// BlogSearchPrompt builds the blog recipe prompt.
func BlogSearchPrompt(count int, query string) string {
	return fmt.Sprintf(promptBlogSearch, count, query)
}

func promptValue(p *string) string {
	if p == nil {
		return "null"
	}
	return *p
}
